package models

import "time"

// Employee is a person who can hold assets
type Employee struct {
	ID         int64     `json:"id"`
	EmployeeID *string   `json:"employee_id,omitempty"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Department *string   `json:"department,omitempty"`
	Location   *string   `json:"location,omitempty"`
	Manager    *string   `json:"manager,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CreateEmployeeRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Department *string `json:"department,omitempty"`
	Location   *string `json:"location,omitempty"`
	Manager    *string `json:"manager,omitempty"`
}

type UpdateEmployeeRequest struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Email      *string `json:"email,omitempty"`
	FullName   *string `json:"full_name,omitempty"`
	Department *string `json:"department,omitempty"`
	Location   *string `json:"location,omitempty"`
	Manager    *string `json:"manager,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// EmployeeFilter narrows employee listings
type EmployeeFilter struct {
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}
