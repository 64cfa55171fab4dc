package models

import "time"

// DashboardStats сводные показатели админки.
type DashboardStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalCourses     int `json:"totalCourses"`
	TotalEnrollments int `json:"totalEnrollments"`
	OpenTickets      int `json:"openTickets"`
}

// CourseSummary строка списка курсов.
type CourseSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	InstructorID string `json:"instructorId"`
	IsPublished  bool   `json:"isPublished"`
}

// Ticket обращение в поддержку.
type Ticket struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dashboard объединённый результат четырёх параллельных запросов админки.
type Dashboard struct {
	Stats   DashboardStats
	Users   []UserSummary
	Courses []CourseSummary
	Tickets []Ticket
}
