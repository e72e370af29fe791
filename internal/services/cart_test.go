package services

import (
	"context"
	"testing"

	"github.com/edusys/activityhub/internal/models"
)

func TestAddToCartRules(t *testing.T) {
	svc, gdb := newTestService(t)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), nil)
	free := mkActivity(t, gdb, "Chess Club", models.ActivityFree, 0, 5, 7)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 5, 14)
	ctx := context.Background()
	pr := asPrincipal(student)

	err := svc.AddToCart(ctx, pr, free.ID)
	wantKind(t, err, KindValidation)

	if err := svc.AddToCart(ctx, pr, paid.ID); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	// Same activity twice conflicts.
	err = svc.AddToCart(ctx, pr, paid.ID)
	wantKind(t, err, KindConflict)

	err = svc.AddToCart(ctx, pr, 9999)
	wantKind(t, err, KindNotFound)

	views, err := svc.Cart(ctx, pr)
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 1 || views[0].Activity.ID != paid.ID {
		t.Fatalf("cart has %d items", len(views))
	}
}

func TestAddToCartFullActivity(t *testing.T) {
	svc, gdb := newTestService(t)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), nil)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 1, 14)
	if err := gdb.Model(&models.Activity{}).Where("id = ?", paid.ID).
		Updates(map[string]any{"is_full": true, "current_participants": 1, "status": models.StatusFull}).Error; err != nil {
		t.Fatal(err)
	}

	err := svc.AddToCart(context.Background(), asPrincipal(student), paid.ID)
	wantKind(t, err, KindConflict)
}

func TestAddToCartMirrorsToParent(t *testing.T) {
	svc, gdb := newTestService(t)
	parent := mkUser(t, gdb, "parent1", models.RoleParent, nil, nil)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), &parent.ID)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 5, 14)
	ctx := context.Background()

	if err := svc.AddToCart(ctx, asPrincipal(student), paid.ID); err != nil {
		t.Fatal(err)
	}

	parentCart, err := svc.Cart(ctx, asPrincipal(parent))
	if err != nil {
		t.Fatal(err)
	}
	if len(parentCart) != 1 || parentCart[0].Activity.ID != paid.ID {
		t.Fatalf("parent cart has %d items, want the mirrored entry", len(parentCart))
	}

	// Adding again from the parent side hits the duplicate guard on the
	// mirrored row.
	err = svc.AddToCart(ctx, asPrincipal(parent), paid.ID)
	wantKind(t, err, KindConflict)
}

func TestCheckoutSettlesMirroredCart(t *testing.T) {
	svc, gdb := newTestService(t)
	parent := mkUser(t, gdb, "parent1", models.RoleParent, nil, nil)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), &parent.ID)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 5, 14)
	ctx := context.Background()

	if err := svc.AddToCart(ctx, asPrincipal(student), paid.ID); err != nil {
		t.Fatal(err)
	}
	parentCart, err := svc.Cart(ctx, asPrincipal(parent))
	if err != nil {
		t.Fatal(err)
	}
	if len(parentCart) != 1 {
		t.Fatal("mirrored cart row missing")
	}

	res, err := svc.Checkout(ctx, asPrincipal(parent), parentCart[0].Item.ID)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if res.AlreadyPaid {
		t.Fatal("fresh checkout flagged AlreadyPaid")
	}
	if res.Payment.Amount != 500000 || res.Payment.Status != "Completed" {
		t.Errorf("payment = %+v", res.Payment)
	}
	if res.Payment.TransactionID == "" {
		t.Error("transaction id missing")
	}

	// The registration enrolls the student, not the paying parent.
	if res.Registration.StudentID != student.ID {
		t.Errorf("registration student = %d, want %d", res.Registration.StudentID, student.ID)
	}
	if res.Registration.ParentID == nil || *res.Registration.ParentID != parent.ID {
		t.Error("registration should carry the paying parent")
	}
	if res.Registration.Status != models.RegApproved || res.Registration.PaymentStatus != models.PayPaid {
		t.Errorf("registration = %+v", res.Registration)
	}

	var got models.Activity
	if err := gdb.First(&got, paid.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.CurrentParticipants != 1 {
		t.Errorf("currentParticipants = %d, want 1", got.CurrentParticipants)
	}

	// Both sides of the mirrored cart are gone.
	var rows int64
	if err := gdb.Model(&models.CartItem{}).Where("activity_id = ?", paid.ID).Count(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("%d cart rows survive checkout, want 0", rows)
	}
}

func TestCheckoutForbidsStudents(t *testing.T) {
	svc, gdb := newTestService(t)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), nil)

	_, err := svc.Checkout(context.Background(), asPrincipal(student), 1)
	wantKind(t, err, KindForbidden)
}

func TestCheckoutAlreadyPaidIsIdempotent(t *testing.T) {
	svc, gdb := newTestService(t)
	parent := mkUser(t, gdb, "parent1", models.RoleParent, nil, nil)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), &parent.ID)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 5, 14)
	ctx := context.Background()

	if err := svc.AddToCart(ctx, asPrincipal(student), paid.ID); err != nil {
		t.Fatal(err)
	}
	parentCart, err := svc.Cart(ctx, asPrincipal(parent))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Checkout(ctx, asPrincipal(parent), parentCart[0].Item.ID); err != nil {
		t.Fatal(err)
	}

	// Re-stage both mirrored rows by hand, as if a stale tab replayed the
	// add-to-cart after the payment already settled.
	staleStudent := models.CartItem{UserID: student.ID, ActivityID: paid.ID, AddedAt: svc.now()}
	if err := gdb.Create(&staleStudent).Error; err != nil {
		t.Fatal(err)
	}
	stale := models.CartItem{UserID: parent.ID, ActivityID: paid.ID, AddedAt: svc.now()}
	if err := gdb.Create(&stale).Error; err != nil {
		t.Fatal(err)
	}

	res, err := svc.Checkout(ctx, asPrincipal(parent), stale.ID)
	if err != nil {
		t.Fatalf("repeat checkout: %v", err)
	}
	if !res.AlreadyPaid {
		t.Fatal("repeat checkout should report AlreadyPaid")
	}
	if res.Payment != nil {
		t.Error("repeat checkout must not create a second payment")
	}

	var payments int64
	if err := gdb.Model(&models.Payment{}).Count(&payments).Error; err != nil {
		t.Fatal(err)
	}
	if payments != 1 {
		t.Errorf("%d payments recorded, want 1", payments)
	}

	var got models.Activity
	if err := gdb.First(&got, paid.ID).Error; err != nil {
		t.Fatal(err)
	}
	if got.CurrentParticipants != 1 {
		t.Errorf("currentParticipants = %d after repeat checkout, want 1", got.CurrentParticipants)
	}

	var rows int64
	if err := gdb.Model(&models.CartItem{}).Where("activity_id = ?", paid.ID).Count(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Error("stale cart row should be purged")
	}
}

func TestCheckoutRollsBackWhenFull(t *testing.T) {
	svc, gdb := newTestService(t)
	parent := mkUser(t, gdb, "parent1", models.RoleParent, nil, nil)
	mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), &parent.ID)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 1, 14)
	ctx := context.Background()

	if err := svc.AddToCart(ctx, asPrincipal(parent), paid.ID); err != nil {
		t.Fatal(err)
	}
	// The last seat goes to someone else before the parent pays.
	if err := gdb.Model(&models.Activity{}).Where("id = ?", paid.ID).
		Updates(map[string]any{"current_participants": 1, "is_full": true, "status": models.StatusFull}).Error; err != nil {
		t.Fatal(err)
	}

	parentCart, err := svc.Cart(ctx, asPrincipal(parent))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.Checkout(ctx, asPrincipal(parent), parentCart[0].Item.ID)
	wantKind(t, err, KindCapacity)

	// Nothing stuck: no payment, no registration, cart untouched.
	var payments, regs, rows int64
	gdb.Model(&models.Payment{}).Count(&payments)
	gdb.Model(&models.Registration{}).Count(&regs)
	gdb.Model(&models.CartItem{}).Where("activity_id = ?", paid.ID).Count(&rows)
	if payments != 0 || regs != 0 || rows != 1 {
		t.Errorf("after failed checkout payments=%d regs=%d cartRows=%d, want 0 0 1",
			payments, regs, rows)
	}
}

func TestRemoveFromCart(t *testing.T) {
	svc, gdb := newTestService(t)
	student := mkUser(t, gdb, "student1", models.RoleStudent, birthYearsAgo(10), nil)
	other := mkUser(t, gdb, "student2", models.RoleStudent, birthYearsAgo(11), nil)
	paid := mkActivity(t, gdb, "Robotics Lab", models.ActivityPaid, 500000, 5, 14)
	ctx := context.Background()

	if err := svc.AddToCart(ctx, asPrincipal(student), paid.ID); err != nil {
		t.Fatal(err)
	}
	views, err := svc.Cart(ctx, asPrincipal(student))
	if err != nil {
		t.Fatal(err)
	}

	// Someone else's row is invisible.
	err = svc.RemoveFromCart(ctx, asPrincipal(other), views[0].Item.ID)
	wantKind(t, err, KindNotFound)

	if err := svc.RemoveFromCart(ctx, asPrincipal(student), views[0].Item.ID); err != nil {
		t.Fatal(err)
	}
	views, err = svc.Cart(ctx, asPrincipal(student))
	if err != nil {
		t.Fatal(err)
	}
	if len(views) != 0 {
		t.Errorf("cart has %d items after removal", len(views))
	}
}
