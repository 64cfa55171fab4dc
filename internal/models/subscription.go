package models

import "time"

// Subscription подписка преподавателя на платформу.
type Subscription struct {
	ID           string     `json:"id"`
	InstructorID string     `json:"instructorId"`
	PlanName     string     `json:"planName"`
	IsActive     bool       `json:"isActive"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
}
