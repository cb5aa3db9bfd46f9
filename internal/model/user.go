package model

import "time"

// Role decides which commands and resources a user can reach.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

// User is a login account; Student and Faculty profiles hang off it.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	IsVerified     bool      `json:"is_verified"`
	TelegramChatID *int64    `json:"telegram_chat_id"` // nil until linked
	CreatedAt      time.Time `json:"created_at"`
}

// Department groups faculty members.
type Department struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Faculty is a faculty profile joined with its user's contact fields.
type Faculty struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	FacultyCode  string    `json:"faculty_code"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number"`
	DepartmentID int64     `json:"department_id"`
	CreatedAt    time.Time `json:"created_at"`

	// From users
	Email          string `json:"email"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
}

// Student is a student profile joined with its user's contact fields.
type Student struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Name               string    `json:"name"`
	RegistrationNumber string    `json:"registration_number"`
	Course             string    `json:"course"`
	Branch             string    `json:"branch"`
	CurrentYear        int       `json:"current_year"`
	CurrentSemester    int       `json:"current_semester"`
	PhoneNumber        string    `json:"phone_number"`
	CreatedAt          time.Time `json:"created_at"`

	// From users
	Email          string `json:"email"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"`
}
