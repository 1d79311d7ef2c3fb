package inmemdb

import (
	"sort"
	"strings"

	"github.com/edutech/backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByTitle(title string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Title == title {
			return *crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) FilterCourses(filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		if search != "" &&
			!strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			continue
		}
		if filter.Status != "" && crs.Status != filter.Status {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })

	if filter.Skip > 0 {
		if filter.Skip >= len(courses) {
			return []course.Course{}, nil
		}
		courses = courses[filter.Skip:]
	}
	if filter.Limit > 0 && filter.Limit < len(courses) {
		courses = courses[:filter.Limit]
	}
	return courses, nil
}

func (repo *courseRepository) CountCourses() (total, active int, err error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, crs := range repo.db.courses {
		total++
		if crs.Status == course.StatusActive {
			active++
		}
	}
	return total, active, nil
}

func (repo *courseRepository) CreateVideo(vid course.Video) (course.Video, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.videos[vid.ID] = &vid
	return vid, nil
}

func (repo *courseRepository) GetVideoByID(id string) (course.Video, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if vid, ok := repo.db.videos[id]; ok {
		return *vid, nil
	}
	return course.Video{}, course.ErrVideoNotFound
}

func (repo *courseRepository) QueryVideosByCourse(courseID string) ([]course.Video, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	return repo.videosOf(courseID), nil
}

// videosOf expects the read lock held.
func (repo *courseRepository) videosOf(courseID string) []course.Video {
	vids := make([]course.Video, 0)
	for _, vid := range repo.db.videos {
		if vid.CourseID == courseID {
			vids = append(vids, *vid)
		}
	}
	sort.Slice(vids, func(i, j int) bool { return vids[i].Position < vids[j].Position })
	return vids
}

func (repo *courseRepository) ReplaceVideos(courseID string, vids []course.Video) ([]course.Video, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, vid := range repo.db.videos {
		if vid.CourseID == courseID {
			delete(repo.db.videos, id)
		}
	}
	out := make([]course.Video, 0, len(vids))
	for _, vid := range vids {
		vid := vid
		repo.db.videos[vid.ID] = &vid
		out = append(out, vid)
	}
	return out, nil
}

func (repo *courseRepository) GetVideoProgress(userID, videoID string) (course.VideoProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if vp, ok := repo.db.videoProgress[userID+"/"+videoID]; ok {
		return *vp, nil
	}
	return course.VideoProgress{}, course.ErrNotFound
}

func (repo *courseRepository) UpsertVideoProgress(vp course.VideoProgress) (course.VideoProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := vp.UserID + "/" + vp.VideoID
	if existing, ok := repo.db.videoProgress[key]; ok {
		vp.ID = existing.ID
	}
	repo.db.videoProgress[key] = &vp
	return vp, nil
}

func (repo *courseRepository) QueryVideoProgress(userID, courseID string) ([]course.VideoProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var vps []course.VideoProgress
	for _, vid := range repo.videosOf(courseID) {
		if vp, ok := repo.db.videoProgress[userID+"/"+vid.ID]; ok {
			vps = append(vps, *vp)
		}
	}
	return vps, nil
}

func (repo *courseRepository) GetCourseProgress(userID, courseID string) (course.CourseProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cp, ok := repo.db.courseProgress[userID+"/"+courseID]; ok {
		return *cp, nil
	}
	return course.CourseProgress{}, course.ErrNotFound
}

func (repo *courseRepository) UpsertCourseProgress(cp course.CourseProgress) (course.CourseProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	key := cp.UserID + "/" + cp.CourseID
	if existing, ok := repo.db.courseProgress[key]; ok {
		cp.ID = existing.ID
	}
	repo.db.courseProgress[key] = &cp
	return cp, nil
}

func (repo *courseRepository) AverageProgress(courseID string) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var sum float64
	var n int
	for _, cp := range repo.db.courseProgress {
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

func (repo *courseRepository) CreateFeedback(fb course.Feedback) (course.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.feedback[fb.ID] = &fb
	return fb, nil
}

func (repo *courseRepository) QueryFeedbackByCourse(courseID string) ([]course.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fbs := make([]course.Feedback, 0)
	for _, fb := range repo.db.feedback {
		if fb.CourseID == courseID {
			fbs = append(fbs, *fb)
		}
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].CreatedAt.After(fbs[j].CreatedAt) })
	return fbs, nil
}
