package course

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/enroll"
)

type fakeRepo struct {
	courses        map[string]Course
	videos         map[string]Video
	videoProgress  map[string]VideoProgress  // userID+"/"+videoID
	courseProgress map[string]CourseProgress // userID+"/"+courseID
	feedback       []Feedback
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		courses:        make(map[string]Course),
		videos:         make(map[string]Video),
		videoProgress:  make(map[string]VideoProgress),
		courseProgress: make(map[string]CourseProgress),
	}
}

func (r *fakeRepo) CreateCourse(crs Course) (Course, error) {
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *fakeRepo) GetCourseByID(id string) (Course, error) {
	if crs, ok := r.courses[id]; ok {
		return crs, nil
	}
	return Course{}, ErrNotFound
}

func (r *fakeRepo) GetCourseByTitle(title string) (Course, error) {
	for _, crs := range r.courses {
		if crs.Title == title {
			return crs, nil
		}
	}
	return Course{}, ErrNotFound
}

func (r *fakeRepo) UpdateCourse(crs Course) (Course, error) {
	if _, ok := r.courses[crs.ID]; !ok {
		return Course{}, ErrNotFound
	}
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *fakeRepo) FilterCourses(filter QueryFilter) ([]Course, error) {
	var res []Course
	for _, crs := range r.courses {
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		res = append(res, crs)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Title < res[j].Title })
	return res, nil
}

func (r *fakeRepo) CountCourses() (total, active int, err error) {
	for _, crs := range r.courses {
		total++
		if crs.Status == StatusActive {
			active++
		}
	}
	return total, active, nil
}

func (r *fakeRepo) CreateVideo(vid Video) (Video, error) {
	r.videos[vid.ID] = vid
	return vid, nil
}

func (r *fakeRepo) GetVideoByID(id string) (Video, error) {
	if vid, ok := r.videos[id]; ok {
		return vid, nil
	}
	return Video{}, ErrVideoNotFound
}

func (r *fakeRepo) QueryVideosByCourse(courseID string) ([]Video, error) {
	var res []Video
	for _, vid := range r.videos {
		if vid.CourseID == courseID {
			res = append(res, vid)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Position < res[j].Position })
	return res, nil
}

func (r *fakeRepo) ReplaceVideos(courseID string, vids []Video) ([]Video, error) {
	for id, vid := range r.videos {
		if vid.CourseID == courseID {
			delete(r.videos, id)
		}
	}
	for _, vid := range vids {
		r.videos[vid.ID] = vid
	}
	return vids, nil
}

func (r *fakeRepo) GetVideoProgress(userID, videoID string) (VideoProgress, error) {
	if vp, ok := r.videoProgress[userID+"/"+videoID]; ok {
		return vp, nil
	}
	return VideoProgress{}, ErrNotFound
}

func (r *fakeRepo) UpsertVideoProgress(vp VideoProgress) (VideoProgress, error) {
	r.videoProgress[vp.UserID+"/"+vp.VideoID] = vp
	return vp, nil
}

func (r *fakeRepo) QueryVideoProgress(userID, courseID string) ([]VideoProgress, error) {
	var res []VideoProgress
	for _, vp := range r.videoProgress {
		if vp.UserID != userID {
			continue
		}
		if vid, ok := r.videos[vp.VideoID]; ok && vid.CourseID == courseID {
			res = append(res, vp)
		}
	}
	return res, nil
}

func (r *fakeRepo) GetCourseProgress(userID, courseID string) (CourseProgress, error) {
	if cp, ok := r.courseProgress[userID+"/"+courseID]; ok {
		return cp, nil
	}
	return CourseProgress{}, ErrNotFound
}

func (r *fakeRepo) UpsertCourseProgress(cp CourseProgress) (CourseProgress, error) {
	r.courseProgress[cp.UserID+"/"+cp.CourseID] = cp
	return cp, nil
}

func (r *fakeRepo) AverageProgress(courseID string) (float64, error) {
	var sum float64
	var n int
	for _, cp := range r.courseProgress {
		if cp.CourseID == courseID {
			sum += cp.ProgressPercent
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (r *fakeRepo) CreateFeedback(fb Feedback) (Feedback, error) {
	r.feedback = append(r.feedback, fb)
	return fb, nil
}

func (r *fakeRepo) QueryFeedbackByCourse(courseID string) ([]Feedback, error) {
	var res []Feedback
	for _, fb := range r.feedback {
		if fb.CourseID == courseID {
			res = append(res, fb)
		}
	}
	return res, nil
}

// fakeEnrollments grants access to the user/course pairs in granted.
type fakeEnrollments struct {
	granted map[string]bool // userID+"/"+courseID
	enrs    []enroll.Enrollment
}

func (f *fakeEnrollments) CheckAccess(studentID, courseID string) error {
	if f.granted[studentID+"/"+courseID] {
		return nil
	}
	return core.NewForbiddenError("you are not enrolled in this course")
}

func (f *fakeEnrollments) AccessibleEnrollments(string) ([]enroll.Enrollment, error) {
	return f.enrs, nil
}

func (f *fakeEnrollments) CountByCourse(courseID string) (total, approved int, err error) {
	for _, enr := range f.enrs {
		if enr.CourseID != courseID {
			continue
		}
		total++
		if enr.Status == enroll.StatusApproved {
			approved++
		}
	}
	return total, approved, nil
}

func (f *fakeEnrollments) Counts() (total, accessible int, err error) {
	for _, enr := range f.enrs {
		total++
		if enr.IsAccessible {
			accessible++
		}
	}
	return total, accessible, nil
}

func (f *fakeEnrollments) Revenue(string) (float64, error) { return 150, nil }

func newTestService() (*Service, *fakeRepo, *fakeEnrollments) {
	repo := newFakeRepo()
	enrollments := &fakeEnrollments{granted: make(map[string]bool)}
	svc := NewService(repo, enrollments, nil, core.NewNopLogger())
	return svc, repo, enrollments
}

func seedCourse(t *testing.T, svc *Service, title string, videos ...NewVideo) Course {
	t.Helper()
	crs, err := svc.Create(context.Background(), "adm1", NewCourse{
		Title:       title,
		Description: "A thorough, hands-on walkthrough.",
		Price:       50,
		Videos:      videos,
	}, nil, "")
	require.NoError(t, err)
	return crs
}

func TestService_Create(t *testing.T) {
	svc, repo, _ := newTestService()

	crs := seedCourse(t, svc, "Intro to Go",
		NewVideo{Title: "Setup", YoutubeURL: "https://youtu.be/a1"},
		NewVideo{Title: "Syntax", YoutubeURL: "https://youtu.be/a2"},
	)
	assert.Equal(t, StatusActive, crs.Status)
	assert.Equal(t, "adm1", crs.CreatedBy)

	vids, err := repo.QueryVideosByCourse(crs.ID)
	require.NoError(t, err)
	require.Len(t, vids, 2)
	assert.Equal(t, "Setup", vids[0].Title)
	assert.Equal(t, 0, vids[0].Position)

	// duplicate title
	_, err = svc.Create(context.Background(), "adm1", NewCourse{
		Title: "Intro to Go", Description: "Completely different content.", Price: 10,
	}, nil, "")
	assert.True(t, core.IsConflict(err))
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name  string
		nc    NewCourse
		field string
	}{
		{"short title", NewCourse{Title: "Go", Description: "Long enough description.", Price: 10}, "Title"},
		{"short description", NewCourse{Title: "Intro to Go", Description: "short", Price: 10}, "Description"},
		{"negative price", NewCourse{Title: "Intro to Go", Description: "Long enough description.", Price: -1}, "Price"},
		{"video without url", NewCourse{Title: "Intro to Go", Description: "Long enough description.", Videos: []NewVideo{{Title: "Setup"}}}, "YoutubeURL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "adm1", tt.nc, nil, "")
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			found := false
			for _, fe := range verrs {
				if fe.StructField() == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a violation on %s, got %v", tt.field, err)
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, _, _ := newTestService()
	crs := seedCourse(t, svc, "Intro to Go")
	seedCourse(t, svc, "Advanced Go")

	up := UpdateCourse{Title: "Intro to Go", Description: "A thorough, hands-on walkthrough.", Price: 75}
	updated, err := svc.Update(context.Background(), "adm2", crs.ID, up, nil, "")
	require.NoError(t, err, "keeping its own title is not a duplicate")
	assert.Equal(t, 75.0, updated.Price)
	assert.Equal(t, "adm2", updated.UpdatedBy)

	up.Title = "Advanced Go"
	_, err = svc.Update(context.Background(), "adm2", crs.ID, up, nil, "")
	assert.True(t, core.IsConflict(err))
}

func TestService_Delete(t *testing.T) {
	svc, _, _ := newTestService()
	crs := seedCourse(t, svc, "Intro to Go")

	require.NoError(t, svc.Delete("adm1", crs.ID))

	_, err := svc.ExploreDetail(crs.ID)
	assert.Equal(t, ErrNotFound, err)

	courses, err := svc.ExploreAll("")
	require.NoError(t, err)
	assert.Empty(t, courses)

	// still visible to admins
	detail, err := svc.AdminDetail(crs.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, detail.Status)

	// deleting twice is a 404
	assert.Equal(t, ErrNotFound, svc.Delete("adm1", crs.ID))
}

func TestService_VideosWithCheckpoint(t *testing.T) {
	svc, repo, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go",
		NewVideo{Title: "Setup", YoutubeURL: "https://youtu.be/a1"},
		NewVideo{Title: "Syntax", YoutubeURL: "https://youtu.be/a2"},
	)

	_, err := svc.VideosWithCheckpoint("std1", crs.ID)
	assert.True(t, core.IsForbidden(err))

	enrollments.granted["std1/"+crs.ID] = true
	vids, err := svc.VideosWithCheckpoint("std1", crs.ID)
	require.NoError(t, err)
	require.Len(t, vids, 2)
	assert.False(t, vids[0].Completed)

	_, _, err = svc.ToggleVideoCompleted("std1", vids[0].ID)
	require.NoError(t, err)

	vids, err = svc.VideosWithCheckpoint("std1", crs.ID)
	require.NoError(t, err)
	assert.True(t, vids[0].Completed)
	assert.False(t, vids[1].Completed)

	_ = repo // progress assertions live in TestService_ToggleVideoCompleted
}

func TestService_ToggleVideoCompleted(t *testing.T) {
	svc, _, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go",
		NewVideo{Title: "Setup", YoutubeURL: "https://youtu.be/a1"},
		NewVideo{Title: "Syntax", YoutubeURL: "https://youtu.be/a2"},
	)
	enrollments.granted["std1/"+crs.ID] = true
	vids, err := svc.VideosWithCheckpoint("std1", crs.ID)
	require.NoError(t, err)

	vp, cp, err := svc.ToggleVideoCompleted("std1", vids[0].ID)
	require.NoError(t, err)
	assert.True(t, vp.Completed)
	assert.Equal(t, 50.0, cp.ProgressPercent)
	assert.False(t, cp.Completed)

	_, cp, err = svc.ToggleVideoCompleted("std1", vids[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cp.ProgressPercent)
	assert.True(t, cp.Completed)

	done, err := svc.IsCompleted("std1", crs.ID)
	require.NoError(t, err)
	assert.True(t, done)

	// toggling back down revokes completion
	vp, cp, err = svc.ToggleVideoCompleted("std1", vids[1].ID)
	require.NoError(t, err)
	assert.False(t, vp.Completed)
	assert.Equal(t, 50.0, cp.ProgressPercent)
	assert.False(t, cp.Completed)

	// unknown video
	_, _, err = svc.ToggleVideoCompleted("std1", "nope")
	assert.Equal(t, ErrVideoNotFound, err)
}

func TestService_MyCourses(t *testing.T) {
	svc, _, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go",
		NewVideo{Title: "Setup", YoutubeURL: "https://youtu.be/a1"},
	)
	gone := seedCourse(t, svc, "Retired Course")
	require.NoError(t, svc.Delete("adm1", gone.ID))

	exp := time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)
	days := 12
	enrollments.granted["std1/"+crs.ID] = true
	enrollments.enrs = []enroll.Enrollment{
		{UserID: "std1", CourseID: crs.ID, Status: enroll.StatusApproved, IsAccessible: true, ExpirationDate: &exp, DaysRemaining: &days},
		{UserID: "std1", CourseID: gone.ID, Status: enroll.StatusApproved, IsAccessible: true},
	}

	vids, err := svc.VideosWithCheckpoint("std1", crs.ID)
	require.NoError(t, err)
	_, _, err = svc.ToggleVideoCompleted("std1", vids[0].ID)
	require.NoError(t, err)

	mine, err := svc.MyCourses("std1")
	require.NoError(t, err)
	require.Len(t, mine, 1, "deleted courses drop out")
	assert.Equal(t, crs.ID, mine[0].ID)
	assert.Equal(t, 100.0, mine[0].ProgressPercent)
	require.NotNil(t, mine[0].DaysRemaining)
	assert.Equal(t, 12, *mine[0].DaysRemaining)
}

func TestService_SubmitFeedback(t *testing.T) {
	svc, _, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go",
		NewVideo{Title: "Setup", YoutubeURL: "https://youtu.be/a1"},
	)

	nf := NewFeedback{Rating: 5, Comment: "Great course"}
	_, err := svc.SubmitFeedback("std1", crs.ID, nf)
	assert.True(t, core.IsForbidden(err), "not enrolled")

	enrollments.granted["std1/"+crs.ID] = true
	_, err = svc.SubmitFeedback("std1", crs.ID, nf)
	assert.True(t, core.IsForbidden(err), "enrolled but not completed")

	vids, err := svc.VideosWithCheckpoint("std1", crs.ID)
	require.NoError(t, err)
	_, _, err = svc.ToggleVideoCompleted("std1", vids[0].ID)
	require.NoError(t, err)

	fb, err := svc.SubmitFeedback("std1", crs.ID, nf)
	require.NoError(t, err)
	assert.Equal(t, 5, fb.Rating)

	all, err := svc.FeedbackFor(crs.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// rating out of range
	_, err = svc.SubmitFeedback("std1", crs.ID, NewFeedback{Rating: 6})
	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestService_GetCourseBrief(t *testing.T) {
	svc, _, _ := newTestService()
	crs := seedCourse(t, svc, "Intro to Go")

	title, price, err := svc.GetCourseBrief(crs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Intro to Go", title)
	assert.Equal(t, 50.0, price)

	_, _, err = svc.GetCourseBrief("nope")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, svc.Delete("adm1", crs.ID))
	_, _, err = svc.GetCourseBrief(crs.ID)
	assert.True(t, core.IsNotFound(err), "deleted courses cannot be purchased")
}

func TestService_Dashboard(t *testing.T) {
	svc, _, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go")
	gone := seedCourse(t, svc, "Retired Course")
	require.NoError(t, svc.Delete("adm1", gone.ID))

	enrollments.enrs = []enroll.Enrollment{
		{UserID: "std1", CourseID: crs.ID, Status: enroll.StatusApproved, IsAccessible: true},
		{UserID: "std2", CourseID: crs.ID, Status: enroll.StatusPending},
	}

	stats, err := svc.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCourses)
	assert.Equal(t, 1, stats.ActiveCourses)
	assert.Equal(t, 2, stats.TotalEnrollments)
	assert.Equal(t, 1, stats.ActiveEnrollments)
	assert.Equal(t, 150.0, stats.TotalRevenue)
}

func TestService_AdminList_Stats(t *testing.T) {
	svc, _, enrollments := newTestService()
	crs := seedCourse(t, svc, "Intro to Go")

	enrollments.enrs = []enroll.Enrollment{
		{UserID: "std1", CourseID: crs.ID, Status: enroll.StatusApproved, IsAccessible: true},
		{UserID: "std2", CourseID: crs.ID, Status: enroll.StatusRejected},
	}

	list, err := svc.AdminList(QueryFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Stats.TotalEnrollments)
	assert.Equal(t, 1, list[0].Stats.ActiveEnrollments)
	assert.Equal(t, 150.0, list[0].Stats.Revenue)
}
