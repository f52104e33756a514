package model

import "time"

// ReviewRating is a user's review of a course. Unique per (user, course).
type ReviewRating struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Review    string    `json:"review"`
	Rating    float64   `json:"rating"`
	IP        string    `json:"-"`
	Status    bool      `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RateCourseRequest is the payload for POST /courses/:id/rate/.
type RateCourseRequest struct {
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
	Subject string  `json:"subject" binding:"omitempty,max=100"`
	Review  string  `json:"review" binding:"omitempty,max=500"`
}

// Contact is a message left through the public contact form.
type Contact struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactRequest is the payload for POST /contacts/.
type ContactRequest struct {
	Email   string `json:"email" binding:"required,email,max=255"`
	Subject string `json:"subject" binding:"required,min=1,max=255"`
	Message string `json:"message" binding:"required,min=1,max=5000"`
}
