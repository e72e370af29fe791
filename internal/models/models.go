package models

import "time"

// Role values for User.Role.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
)

// Activity.Type values.
const (
	ActivityFree = "free"
	ActivityPaid = "paid"
)

// Activity.Status values.
const (
	StatusDraft     = "Draft"
	StatusPublished = "Published"
	StatusArchived  = "Archived"
	StatusFull      = "Full"
)

// Registration.Status values.
const (
	RegPending   = "Pending"
	RegApproved  = "Approved"
	RegRejected  = "Rejected"
	RegCancelled = "Cancelled"
)

// Registration.PaymentStatus values.
const (
	PayPaid     = "Paid"
	PayUnpaid   = "Unpaid"
	PayRefunded = "Refunded"
	PayNA       = "N/A"
)

// Registration.AttendanceStatus values.
const (
	AttendanceNotStarted = "Not Started"
	AttendancePresent    = "Present"
	AttendanceAbsent     = "Absent"
	AttendanceCompleted  = "Completed"
)

// Interaction.Type values.
const (
	InteractionLike    = "Like"
	InteractionComment = "Comment"
)

type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"index"`
	PasswordHash string `gorm:"not null"`
	FullName     string
	Role         string `gorm:"index;not null"` // admin | teacher | parent | student
	BirthDate    *time.Time
	Address      string

	// Students may be linked to one parent account.
	ParentID *uint `gorm:"index"`
}

// StaffTeacher is the instructor directory maintained by admins. It is a
// catalog entry, not a login account.
type StaffTeacher struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	FullName       string `gorm:"not null"`
	Email          string
	Phone          string
	Specialization string
	Experience     int
	Bio            string
	IsActive       bool
}

type Activity struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Title        string `gorm:"not null"`
	Description  string
	Type         string `gorm:"index;not null"` // free | paid
	Price        int64  // minor currency units; 0 for free activities
	ImageURL     string
	Location     string
	Skills       string
	Requirements string

	// Date-only calendar window (UTC midnight) plus minutes-of-day times.
	StartDate time.Time `gorm:"index"`
	EndDate   time.Time
	StartTime int // minutes since midnight
	EndTime   int

	MinAge          int
	MaxAge          int
	MaxParticipants int

	// Denormalized aggregates, maintained in lock-step with the
	// registrations/interactions tables. ReconcileActivityCounters recomputes
	// them from the ledger.
	CurrentParticipants int
	LikesCount          int
	CommentsCount       int

	IsActive bool
	IsFull   bool
	Status   string `gorm:"index"` // Draft | Published | Archived | Full

	CreatorID uint
	TeacherID *uint

	Registrations []Registration `gorm:"constraint:OnDelete:CASCADE"`
	Interactions  []Interaction  `gorm:"constraint:OnDelete:CASCADE"`
	CartItems     []CartItem     `gorm:"constraint:OnDelete:CASCADE"`
}

type Registration struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ActivityID uint `gorm:"index;not null"`
	StudentID  uint `gorm:"index;not null"`
	ParentID   *uint

	Status           string `gorm:"index;not null"` // Pending | Approved | Rejected | Cancelled
	PaymentStatus    string `gorm:"not null"`       // Paid | Unpaid | Refunded | N/A
	AttendanceStatus string
	AmountPaid       int64
	Notes            string

	Code string `gorm:"uniqueIndex"` // e.g. REG-123456, encoded in the ticket QR
}

type Interaction struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ActivityID uint   `gorm:"index;not null"`
	UserID     uint   `gorm:"index;not null"`
	Type       string `gorm:"index;not null"` // Like | Comment
	Content    string // comments only
}

type CartItem struct {
	ID      uint `gorm:"primaryKey"`
	AddedAt time.Time

	UserID     uint `gorm:"index;not null"`
	ActivityID uint `gorm:"index;not null"`
	IsPaid     bool
}

type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	RegistrationID uint `gorm:"index;not null"`
	UserID         uint `gorm:"index;not null"` // who paid
	Amount         int64
	Method         string
	Status         string // Pending | Completed | Failed | Refunded
	TransactionID  string `gorm:"uniqueIndex"`
	Notes          string
	PaymentDate    time.Time
}

// Message is an in-app notification written by moderation and checkout.
type Message struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	SenderID   uint `gorm:"index;not null"`
	ReceiverID uint `gorm:"index;not null"`
	ActivityID *uint

	Subject string
	Content string
	IsRead  bool
	ReadAt  *time.Time
}
