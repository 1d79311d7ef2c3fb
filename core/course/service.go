package course

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/enroll"
)

var (
	// errors
	ErrNotFound      = errors.New("course not found")
	ErrVideoNotFound = errors.New("video not found")
)

const thumbnailFolder = "course_thumbnails"

type (
	Repository interface {
		CreateCourse(crs Course) (Course, error)
		GetCourseByID(id string) (Course, error)
		GetCourseByTitle(title string) (Course, error)
		UpdateCourse(crs Course) (Course, error)
		// FilterCourses applies search/status narrowing with skip/limit
		// paging. An empty filter returns everything.
		FilterCourses(filter QueryFilter) ([]Course, error)
		CountCourses() (total, active int, err error)

		CreateVideo(vid Video) (Video, error)
		GetVideoByID(id string) (Video, error)
		QueryVideosByCourse(courseID string) ([]Video, error)
		// ReplaceVideos swaps a course's video list wholesale, preserving
		// the given order.
		ReplaceVideos(courseID string, vids []Video) ([]Video, error)

		GetVideoProgress(userID, videoID string) (VideoProgress, error)
		UpsertVideoProgress(vp VideoProgress) (VideoProgress, error)
		QueryVideoProgress(userID, courseID string) ([]VideoProgress, error)

		GetCourseProgress(userID, courseID string) (CourseProgress, error)
		UpsertCourseProgress(cp CourseProgress) (CourseProgress, error)
		// AverageProgress over all students with recorded progress on the
		// course; 0 when nobody started.
		AverageProgress(courseID string) (float64, error)

		CreateFeedback(fb Feedback) (Feedback, error)
		QueryFeedbackByCourse(courseID string) ([]Feedback, error)
	}

	// Enrollments is the slice of the enrollment domain this package
	// needs for gating content and computing admin stats.
	Enrollments interface {
		CheckAccess(studentID, courseID string) error
		AccessibleEnrollments(studentID string) ([]enroll.Enrollment, error)
		CountByCourse(courseID string) (total, approved int, err error)
		Counts() (total, accessible int, err error)
		Revenue(courseID string) (float64, error)
	}

	Service struct {
		repo        Repository
		enrollments Enrollments
		storage     core.FileStorage
		logger      core.Logger
	}
)

func NewService(repo Repository, enrollments Enrollments, storage core.FileStorage, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		storage:     storage,
		logger:      logger,
	}
}

func (svc *Service) checkTitleUniqueness(title string, exclCourseIDs ...string) error {
	crs, err := svc.repo.GetCourseByTitle(title)
	if err == ErrNotFound {
		return nil
	} else if err != nil {
		return err
	}
	for _, id := range exclCourseIDs {
		if crs.ID == id {
			return nil
		}
	}
	return core.NewConflictError("a course with this title already exists")
}

// getActiveCourse hides soft-deleted courses from every read path.
func (svc *Service) getActiveCourse(id string) (Course, error) {
	crs, err := svc.repo.GetCourseByID(id)
	if err != nil {
		return Course{}, err
	}
	if crs.IsDeleted() {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

// ExploreAll lists the public catalog: active courses only.
func (svc *Service) ExploreAll(search string) ([]Course, error) {
	return svc.repo.FilterCourses(QueryFilter{Search: search, Status: StatusActive})
}

// ExploreDetail returns one course for the public catalog page.
func (svc *Service) ExploreDetail(courseID string) (Course, error) {
	return svc.getActiveCourse(courseID)
}

func (svc *Service) Curriculum(courseID string) ([]string, error) {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return nil, err
	}
	return crs.Curriculum, nil
}

func (svc *Service) Outcomes(courseID string) ([]string, error) {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return nil, err
	}
	return crs.Outcomes, nil
}

func (svc *Service) Prerequisites(courseID string) ([]string, error) {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return nil, err
	}
	return crs.Prerequisites, nil
}

func (svc *Service) Description(courseID string) (string, error) {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return "", err
	}
	return crs.Description, nil
}

// GetCourseBrief resolves a course id to the title and price other
// domains embed in notifications, emails and purchase info.
func (svc *Service) GetCourseBrief(courseID string) (title string, price float64, err error) {
	crs, err := svc.getActiveCourse(courseID)
	if err == ErrNotFound {
		return "", 0, core.NewNotFoundError("course not found")
	} else if err != nil {
		return "", 0, err
	}
	return crs.Title, crs.Price, nil
}

// MyCourses returns the student's accessible courses with their
// remaining-access window and progress. Enrollments are refreshed
// upstream, so an expired course drops out on its own.
func (svc *Service) MyCourses(studentID string) ([]EnrolledCourse, error) {
	enrs, err := svc.enrollments.AccessibleEnrollments(studentID)
	if err != nil {
		return nil, err
	}

	courses := make([]EnrolledCourse, 0, len(enrs))
	for _, enr := range enrs {
		crs, err := svc.getActiveCourse(enr.CourseID)
		if err == ErrNotFound {
			continue // course pulled from the catalog after enrollment
		} else if err != nil {
			return nil, err
		}
		ec := EnrolledCourse{
			Course:         crs,
			ExpirationDate: enr.ExpirationDate,
			DaysRemaining:  enr.DaysRemaining,
		}
		if cp, err := svc.repo.GetCourseProgress(studentID, crs.ID); err == nil {
			ec.ProgressPercent = cp.ProgressPercent
		}
		courses = append(courses, ec)
	}
	return courses, nil
}

// VideosWithCheckpoint returns the course's videos with the student's
// watched flags. Enrollment-gated.
func (svc *Service) VideosWithCheckpoint(studentID, courseID string) ([]VideoCheckpoint, error) {
	if _, err := svc.getActiveCourse(courseID); err != nil {
		return nil, err
	}
	if err := svc.enrollments.CheckAccess(studentID, courseID); err != nil {
		return nil, err
	}

	vids, err := svc.repo.QueryVideosByCourse(courseID)
	if err != nil {
		return nil, err
	}
	progress, err := svc.repo.QueryVideoProgress(studentID, courseID)
	if err != nil {
		return nil, err
	}
	watched := make(map[string]bool, len(progress))
	for _, vp := range progress {
		watched[vp.VideoID] = vp.Completed
	}

	checkpoints := make([]VideoCheckpoint, 0, len(vids))
	for _, vid := range vids {
		checkpoints = append(checkpoints, VideoCheckpoint{Video: vid, Completed: watched[vid.ID]})
	}
	return checkpoints, nil
}

// ToggleVideoCompleted flips the student's watched flag on a video and
// recomputes the course rollup. Enrollment-gated via the video's course.
func (svc *Service) ToggleVideoCompleted(studentID, videoID string) (VideoProgress, CourseProgress, error) {
	vid, err := svc.repo.GetVideoByID(videoID)
	if err != nil {
		return VideoProgress{}, CourseProgress{}, err
	}
	if err = svc.enrollments.CheckAccess(studentID, vid.CourseID); err != nil {
		return VideoProgress{}, CourseProgress{}, err
	}

	now := core.NowFunc().UTC()
	vp, err := svc.repo.GetVideoProgress(studentID, videoID)
	if err == ErrNotFound {
		vp = VideoProgress{
			ID:      uuid.New().String(),
			UserID:  studentID,
			VideoID: videoID,
		}
	} else if err != nil {
		return VideoProgress{}, CourseProgress{}, err
	}
	vp.Completed = !vp.Completed
	vp.UpdatedAt = now
	if vp, err = svc.repo.UpsertVideoProgress(vp); err != nil {
		return VideoProgress{}, CourseProgress{}, err
	}

	cp, err := svc.recomputeProgress(studentID, vid.CourseID, now)
	if err != nil {
		return VideoProgress{}, CourseProgress{}, err
	}
	return vp, cp, nil
}

// Progress returns the student's rollup for a course, computing it on
// the spot when no toggle has happened yet. Enrollment-gated.
func (svc *Service) Progress(studentID, courseID string) (CourseProgress, error) {
	if _, err := svc.getActiveCourse(courseID); err != nil {
		return CourseProgress{}, err
	}
	if err := svc.enrollments.CheckAccess(studentID, courseID); err != nil {
		return CourseProgress{}, err
	}

	cp, err := svc.repo.GetCourseProgress(studentID, courseID)
	if err == ErrNotFound {
		return svc.recomputeProgress(studentID, courseID, core.NowFunc().UTC())
	}
	return cp, err
}

// IsCompleted reports whether the student has watched every video of
// the course. Certificate issuance hangs off this.
func (svc *Service) IsCompleted(studentID, courseID string) (bool, error) {
	cp, err := svc.repo.GetCourseProgress(studentID, courseID)
	if err == ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return cp.Completed, nil
}

func (svc *Service) recomputeProgress(studentID, courseID string, now time.Time) (CourseProgress, error) {
	vids, err := svc.repo.QueryVideosByCourse(courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	progress, err := svc.repo.QueryVideoProgress(studentID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}

	completed := 0
	for _, vp := range progress {
		if vp.Completed {
			completed++
		}
	}

	cp, err := svc.repo.GetCourseProgress(studentID, courseID)
	if err == ErrNotFound {
		cp = CourseProgress{
			ID:       uuid.New().String(),
			UserID:   studentID,
			CourseID: courseID,
		}
	} else if err != nil {
		return CourseProgress{}, err
	}

	cp.CompletedVideos = completed
	cp.TotalVideos = len(vids)
	cp.ProgressPercent = 0
	if len(vids) > 0 {
		cp.ProgressPercent = float64(completed) / float64(len(vids)) * 100
	}
	cp.Completed = len(vids) > 0 && completed == len(vids)
	cp.UpdatedAt = now
	return svc.repo.UpsertCourseProgress(cp)
}

// SubmitFeedback records a student's rating. Gated on enrollment and
// full completion of the course.
func (svc *Service) SubmitFeedback(studentID, courseID string, nf NewFeedback) (Feedback, error) {
	if _, err := svc.getActiveCourse(courseID); err != nil {
		return Feedback{}, err
	}
	if err := nf.Validate(); err != nil {
		return Feedback{}, err
	}
	if err := svc.enrollments.CheckAccess(studentID, courseID); err != nil {
		return Feedback{}, err
	}
	done, err := svc.IsCompleted(studentID, courseID)
	if err != nil {
		return Feedback{}, err
	}
	if !done {
		return Feedback{}, core.NewForbiddenError("you must complete the course before leaving feedback")
	}

	return svc.repo.CreateFeedback(Feedback{
		ID:        uuid.New().String(),
		CourseID:  courseID,
		UserID:    studentID,
		Rating:    nf.Rating,
		Comment:   nf.Comment,
		CreatedAt: core.NowFunc().UTC(),
	})
}

func (svc *Service) FeedbackFor(courseID string) ([]Feedback, error) {
	if _, err := svc.getActiveCourse(courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryFeedbackByCourse(courseID)
}

// Create adds a course to the catalog with its nested videos. Thumbnail
// upload is optional; pass a nil reader to skip it.
func (svc *Service) Create(ctx context.Context, adminID string, nc NewCourse, thumbnail io.Reader, filename string) (Course, error) {
	if err := nc.Validate(svc); err != nil {
		return Course{}, err
	}

	now := core.NowFunc().UTC()
	crs := Course{
		ID:              uuid.New().String(),
		Title:           nc.Title,
		Description:     nc.Description,
		Price:           nc.Price,
		DifficultyLevel: nc.DifficultyLevel,
		Outcomes:        nc.Outcomes,
		Prerequisites:   nc.Prerequisites,
		Curriculum:      nc.Curriculum,
		Status:          StatusActive,
		CreatedBy:       adminID,
		UpdatedBy:       adminID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if thumbnail != nil {
		url, err := svc.storage.Upload(ctx, thumbnail, thumbnailFolder, filename)
		if err != nil {
			return Course{}, err
		}
		crs.ThumbnailURL = url
	}

	crs, err := svc.repo.CreateCourse(crs)
	if err != nil {
		return Course{}, err
	}
	for i, nv := range nc.Videos {
		if _, err = svc.repo.CreateVideo(Video{
			ID:          uuid.New().String(),
			CourseID:    crs.ID,
			YoutubeURL:  nv.YoutubeURL,
			Title:       nv.Title,
			Description: nv.Description,
			Position:    i,
			CreatedAt:   now,
		}); err != nil {
			return Course{}, err
		}
	}
	return crs, nil
}

// Update edits a course in place.
func (svc *Service) Update(ctx context.Context, adminID, courseID string, uc UpdateCourse, thumbnail io.Reader, filename string) (Course, error) {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return Course{}, err
	}
	if err = uc.Validate(svc, courseID); err != nil {
		return Course{}, err
	}

	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.Price = uc.Price
	crs.DifficultyLevel = uc.DifficultyLevel
	crs.Outcomes = uc.Outcomes
	crs.Prerequisites = uc.Prerequisites
	crs.Curriculum = uc.Curriculum
	crs.UpdatedBy = adminID
	crs.UpdatedAt = core.NowFunc().UTC()

	if thumbnail != nil {
		url, err := svc.storage.Upload(ctx, thumbnail, thumbnailFolder, filename)
		if err != nil {
			return Course{}, err
		}
		crs.ThumbnailURL = url
	}
	return svc.repo.UpdateCourse(crs)
}

// Delete soft-deletes: the course disappears from every student-facing
// read but its enrollments and history stay queryable.
func (svc *Service) Delete(adminID, courseID string) error {
	crs, err := svc.getActiveCourse(courseID)
	if err != nil {
		return err
	}
	crs.Status = StatusDeleted
	crs.UpdatedBy = adminID
	crs.UpdatedAt = core.NowFunc().UTC()
	_, err = svc.repo.UpdateCourse(crs)
	return err
}

// ReplaceVideos swaps a course's video list wholesale.
func (svc *Service) ReplaceVideos(courseID string, nvs []NewVideo) ([]Video, error) {
	if _, err := svc.getActiveCourse(courseID); err != nil {
		return nil, err
	}
	for i := range nvs {
		if err := core.Validate.Struct(&nvs[i]); err != nil {
			return nil, err
		}
	}

	now := core.NowFunc().UTC()
	vids := make([]Video, 0, len(nvs))
	for i, nv := range nvs {
		vids = append(vids, Video{
			ID:          uuid.New().String(),
			CourseID:    courseID,
			YoutubeURL:  nv.YoutubeURL,
			Title:       nv.Title,
			Description: nv.Description,
			Position:    i,
			CreatedAt:   now,
		})
	}
	return svc.repo.ReplaceVideos(courseID, vids)
}

// AdminList returns courses (any status) with per-course stats.
func (svc *Service) AdminList(filter QueryFilter) ([]CourseWithStats, error) {
	courses, err := svc.repo.FilterCourses(filter)
	if err != nil {
		return nil, err
	}

	res := make([]CourseWithStats, 0, len(courses))
	for _, crs := range courses {
		stats, err := svc.statsFor(crs.ID)
		if err != nil {
			return nil, err
		}
		res = append(res, CourseWithStats{Course: crs, Stats: stats})
	}
	return res, nil
}

// AdminDetail returns one course (any status) with its stats.
func (svc *Service) AdminDetail(courseID string) (CourseWithStats, error) {
	crs, err := svc.repo.GetCourseByID(courseID)
	if err != nil {
		return CourseWithStats{}, err
	}
	stats, err := svc.statsFor(courseID)
	if err != nil {
		return CourseWithStats{}, err
	}
	return CourseWithStats{Course: crs, Stats: stats}, nil
}

func (svc *Service) statsFor(courseID string) (CourseStats, error) {
	total, approved, err := svc.enrollments.CountByCourse(courseID)
	if err != nil {
		return CourseStats{}, err
	}
	avg, err := svc.repo.AverageProgress(courseID)
	if err != nil {
		return CourseStats{}, err
	}
	revenue, err := svc.enrollments.Revenue(courseID)
	if err != nil {
		return CourseStats{}, err
	}
	return CourseStats{
		TotalEnrollments:  total,
		ActiveEnrollments: approved,
		AverageProgress:   avg,
		Revenue:           revenue,
	}, nil
}

// Dashboard aggregates platform-wide numbers for the admin landing page.
func (svc *Service) Dashboard() (DashboardStats, error) {
	totalCourses, activeCourses, err := svc.repo.CountCourses()
	if err != nil {
		return DashboardStats{}, err
	}
	totalEnr, activeEnr, err := svc.enrollments.Counts()
	if err != nil {
		return DashboardStats{}, err
	}
	revenue, err := svc.enrollments.Revenue("")
	if err != nil {
		return DashboardStats{}, err
	}
	return DashboardStats{
		TotalCourses:      totalCourses,
		ActiveCourses:     activeCourses,
		TotalEnrollments:  totalEnr,
		ActiveEnrollments: activeEnr,
		TotalRevenue:      revenue,
	}, nil
}

// compile-time check: the enrollment domain consumes us as its catalog.
var _ enroll.CourseCatalog = (*Service)(nil)
