package model

import (
	"fmt"
	"time"
)

// AppointmentStatus is derived at read time, never stored.
type AppointmentStatus string

const (
	StatusUpcoming  AppointmentStatus = "upcoming"
	StatusCompleted AppointmentStatus = "completed"
)

// Appointment is a confirmed booking. Identity is (DoctorID, Date, Time);
// the store enforces uniqueness of that triple.
type Appointment struct {
	ID           string    `json:"id"`
	DoctorID     string    `json:"doctor_id"`
	DoctorName   string    `json:"doctor_name"`
	PatientEmail string    `json:"patient_email"`
	PatientName  string    `json:"patient_name"`
	Date         string    `json:"date"` // "2006-01-02"
	Time         string    `json:"time"` // "15:04"
	BookedAt     time.Time `json:"booked_at"`
}

// Validate checks the appointment fields before persistence and rewrites
// Date and Time to their canonical zero-padded forms. Canonicalizing here
// keeps the UNIQUE(doctor_id, date, time) key honest: "9:00" and "09:00"
// must collide, not coexist.
func (a *Appointment) Validate() error {
	if a.DoctorID == "" {
		return fmt.Errorf("%w: doctor id is required", ErrValidation)
	}
	if a.PatientEmail == "" {
		return fmt.Errorf("%w: patient email is required", ErrValidation)
	}
	date, err := time.Parse("2006-01-02", a.Date)
	if err != nil {
		return fmt.Errorf("%w: invalid date %q; expected YYYY-MM-DD", ErrValidation, a.Date)
	}
	clock, err := time.Parse("15:04", a.Time)
	if err != nil {
		return fmt.Errorf("%w: invalid time %q; expected HH:MM", ErrValidation, a.Time)
	}
	a.Date = date.Format("2006-01-02")
	a.Time = clock.Format("15:04")
	return nil
}

// StartTime returns the appointment start as a UTC instant.
func (a *Appointment) StartTime() (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.Time, time.UTC)
}

// Status derives the appointment status relative to now.
func (a *Appointment) Status(now time.Time) AppointmentStatus {
	start, err := a.StartTime()
	if err != nil {
		return StatusCompleted
	}
	if start.After(now) {
		return StatusUpcoming
	}
	return StatusCompleted
}

// User is the shape returned by the user directory collaborator.
type User struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// Role is a user role in the directory.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// FullName joins first and last name, trimming a missing part.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// GoogleCredential is a persisted OAuth credential for a doctor's
// external calendar account.
type GoogleCredential struct {
	DoctorID     string    `json:"doctor_id"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenURI     string    `json:"token_uri"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the access token is past its expiry.
func (c *GoogleCredential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}
