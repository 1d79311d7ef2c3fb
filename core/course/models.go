package course

import (
	"time"

	"github.com/edutech/backend/core"
)

// Course statuses
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

type Course struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Price           float64   `json:"price"`
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	DifficultyLevel string    `json:"difficulty_level,omitempty"`
	Outcomes        []string  `json:"outcomes,omitempty"`
	Prerequisites   []string  `json:"prerequisites,omitempty"`
	Curriculum      []string  `json:"curriculum,omitempty"`
	Status          string    `json:"status"`
	CreatedBy       string    `json:"created_by,omitempty"`
	UpdatedBy       string    `json:"updated_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c Course) IsDeleted() bool { return c.Status == StatusDeleted }

type Video struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	YoutubeURL  string    `json:"youtube_url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// VideoCheckpoint is a video together with the requesting student's
// watched flag.
type VideoCheckpoint struct {
	Video
	Completed bool `json:"completed"`
}

type VideoProgress struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	VideoID   string    `json:"video_id"`
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourseProgress is the per-student rollup maintained on every video
// toggle. Completed flips once every video of the course is watched.
type CourseProgress struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CourseID        string    `json:"course_id"`
	CompletedVideos int       `json:"completed_videos"`
	TotalVideos     int       `json:"total_videos"`
	ProgressPercent float64   `json:"progress_percent"`
	Completed       bool      `json:"completed"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Feedback struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EnrolledCourse is a course shaped for the student's "my courses" view.
type EnrolledCourse struct {
	Course
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	DaysRemaining   *int       `json:"days_remaining,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
}

// CourseStats backs the admin course detail and listing.
type CourseStats struct {
	TotalEnrollments  int     `json:"total_enrollments"`
	ActiveEnrollments int     `json:"active_enrollments"`
	AverageProgress   float64 `json:"average_progress"`
	Revenue           float64 `json:"revenue"`
}

type CourseWithStats struct {
	Course
	Stats CourseStats `json:"stats"`
}

// DashboardStats backs the admin landing page.
type DashboardStats struct {
	TotalCourses      int     `json:"total_courses"`
	ActiveCourses     int     `json:"active_courses"`
	TotalEnrollments  int     `json:"total_enrollments"`
	ActiveEnrollments int     `json:"active_enrollments"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// NewVideo is the nested video payload on course create/update.
type NewVideo struct {
	Title       string `json:"title" validate:"required"`
	YoutubeURL  string `json:"youtube_url" validate:"required,url"`
	Description string `json:"description"`
}

// NewCourse is the admin payload for creating a course.
type NewCourse struct {
	Title           string     `json:"title" validate:"required,min=3"`
	Description     string     `json:"description" validate:"required,min=10"`
	Price           float64    `json:"price" validate:"gte=0"`
	DifficultyLevel string     `json:"difficulty_level"`
	Outcomes        []string   `json:"outcomes"`
	Prerequisites   []string   `json:"prerequisites"`
	Curriculum      []string   `json:"curriculum"`
	Videos          []NewVideo `json:"videos" validate:"dive"`
}

func (nc *NewCourse) Validate(svc *Service) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)

	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	return svc.checkTitleUniqueness(nc.Title)
}

// UpdateCourse is the admin payload for editing a course. Same rules as
// NewCourse, with the duplicate-title check excluding the course itself.
type UpdateCourse struct {
	Title           string   `json:"title" validate:"required,min=3"`
	Description     string   `json:"description" validate:"required,min=10"`
	Price           float64  `json:"price" validate:"gte=0"`
	DifficultyLevel string   `json:"difficulty_level"`
	Outcomes        []string `json:"outcomes"`
	Prerequisites   []string `json:"prerequisites"`
	Curriculum      []string `json:"curriculum"`
}

func (uc *UpdateCourse) Validate(svc *Service, courseID string) error {
	uc.Title = core.CleanString(uc.Title)
	uc.Description = core.CleanString(uc.Description)

	if err := core.Validate.Struct(uc); err != nil {
		return err
	}
	return svc.checkTitleUniqueness(uc.Title, courseID)
}

// NewFeedback is the student payload for course feedback.
type NewFeedback struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (nf *NewFeedback) Validate() error {
	nf.Comment = core.CleanString(nf.Comment)
	return core.Validate.Struct(nf)
}

// QueryFilter narrows the admin course listing.
type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
	Skip   int    `query:"skip"`
	Limit  int    `query:"limit"`
}
