package sqlxrepos

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/course"
)

type courseRepository struct {
	db DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID              string         `db:"id"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	Price           float64        `db:"price"`
	ThumbnailURL    string         `db:"thumbnail_url"`
	DifficultyLevel string         `db:"difficulty_level"`
	Outcomes        pq.StringArray `db:"outcomes"`
	Prerequisites   pq.StringArray `db:"prerequisites"`
	Curriculum      pq.StringArray `db:"curriculum"`
	Status          string         `db:"status"`
	CreatedBy       null.String    `db:"created_by"`
	UpdatedBy       null.String    `db:"updated_by"`
	CreatedAt       null.Time      `db:"created_at"`
	UpdatedAt       null.Time      `db:"updated_at"`
}

func (r courseRow) toDomain() course.Course {
	return course.Course{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Price:           r.Price,
		ThumbnailURL:    r.ThumbnailURL,
		DifficultyLevel: r.DifficultyLevel,
		Outcomes:        r.Outcomes,
		Prerequisites:   r.Prerequisites,
		Curriculum:      r.Curriculum,
		Status:          r.Status,
		CreatedBy:       r.CreatedBy.String,
		UpdatedBy:       r.UpdatedBy.String,
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

func toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:              crs.ID,
		Title:           crs.Title,
		Description:     crs.Description,
		Price:           crs.Price,
		ThumbnailURL:    crs.ThumbnailURL,
		DifficultyLevel: crs.DifficultyLevel,
		Outcomes:        crs.Outcomes,
		Prerequisites:   crs.Prerequisites,
		Curriculum:      crs.Curriculum,
		Status:          crs.Status,
		CreatedBy:       null.NewString(crs.CreatedBy, crs.CreatedBy != ""),
		UpdatedBy:       null.NewString(crs.UpdatedBy, crs.UpdatedBy != ""),
		CreatedAt:       null.TimeFrom(crs.CreatedAt.UTC()),
		UpdatedAt:       null.TimeFrom(crs.UpdatedAt.UTC()),
	}
}

const courseColumns = `id, title, description, price, thumbnail_url, difficulty_level, outcomes, prerequisites, curriculum, status, created_by, updated_by, created_at, updated_at`

func (repo courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	row := toCourseRow(crs)
	_, err := repo.db.NamedExec(`
		INSERT INTO course (`+courseColumns+`)
		VALUES (:id, :title, :description, :price, :thumbnail_url, :difficulty_level, :outcomes, :prerequisites, :curriculum, :status, :created_by, :updated_by, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) GetCourseByID(id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "getting course by id")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) GetCourseByTitle(title string) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, `SELECT `+courseColumns+` FROM course WHERE title = $1`, title); err != nil {
		return course.Course{}, trapNoRows(err, course.ErrNotFound, "getting course by title")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) UpdateCourse(crs course.Course) (course.Course, error) {
	row := toCourseRow(crs)
	res, err := repo.db.NamedExec(`
		UPDATE course
		SET title = :title, description = :description, price = :price, thumbnail_url = :thumbnail_url,
		    difficulty_level = :difficulty_level, outcomes = :outcomes, prerequisites = :prerequisites,
		    curriculum = :curriculum, status = :status, updated_by = :updated_by, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return row.toDomain(), nil
}

func (repo courseRepository) FilterCourses(filter course.QueryFilter) ([]course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM course WHERE 1=1`
	var args []interface{}
	i := 0
	next := func(v interface{}) string {
		args = append(args, v)
		i++
		return fmt.Sprintf("$%d", i)
	}

	if filter.Search != "" {
		p := next("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (title ILIKE %s OR description ILIKE %s)", p, p)
	}
	if filter.Status != "" {
		query += " AND status = " + next(filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + next(filter.Limit)
	}
	if filter.Skip > 0 {
		query += " OFFSET " + next(filter.Skip)
	}

	var rows []courseRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toDomain())
	}
	return courses, nil
}

func (repo courseRepository) CountCourses() (total, active int, err error) {
	err = repo.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active')
		FROM course`,
	).Scan(&total, &active)
	return total, active, errors.Wrap(err, "counting courses")
}

type videoRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	YoutubeURL  string    `db:"youtube_url"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Position    int       `db:"position"`
	CreatedAt   null.Time `db:"created_at"`
}

func (r videoRow) toDomain() course.Video {
	return course.Video{
		ID:          r.ID,
		CourseID:    r.CourseID,
		YoutubeURL:  r.YoutubeURL,
		Title:       r.Title,
		Description: r.Description,
		Position:    r.Position,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func toVideoRow(vid course.Video) videoRow {
	return videoRow{
		ID:          vid.ID,
		CourseID:    vid.CourseID,
		YoutubeURL:  vid.YoutubeURL,
		Title:       vid.Title,
		Description: vid.Description,
		Position:    vid.Position,
		CreatedAt:   null.TimeFrom(vid.CreatedAt.UTC()),
	}
}

const videoColumns = `id, course_id, youtube_url, title, description, position, created_at`

func (repo courseRepository) CreateVideo(vid course.Video) (course.Video, error) {
	row := toVideoRow(vid)
	_, err := repo.db.NamedExec(`
		INSERT INTO video (`+videoColumns+`)
		VALUES (:id, :course_id, :youtube_url, :title, :description, :position, :created_at)`,
		row,
	)
	if err != nil {
		return course.Video{}, errors.Wrap(err, "inserting video")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) GetVideoByID(id string) (course.Video, error) {
	var row videoRow
	if err := repo.db.Get(&row, `SELECT `+videoColumns+` FROM video WHERE id = $1`, id); err != nil {
		return course.Video{}, trapNoRows(err, course.ErrVideoNotFound, "getting video by id")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) QueryVideosByCourse(courseID string) ([]course.Video, error) {
	var rows []videoRow
	err := repo.db.Select(&rows, `SELECT `+videoColumns+` FROM video WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	vids := make([]course.Video, 0, len(rows))
	for _, r := range rows {
		vids = append(vids, r.toDomain())
	}
	return vids, nil
}

func (repo courseRepository) ReplaceVideos(courseID string, vids []course.Video) ([]course.Video, error) {
	tx, err := repo.db.Beginx()
	if err != nil {
		return nil, errors.Wrap(err, "replacing videos")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.Exec(`DELETE FROM video WHERE course_id = $1`, courseID); err != nil {
		return nil, errors.Wrap(err, "replacing videos")
	}
	for _, vid := range vids {
		if _, err = tx.NamedExec(`
			INSERT INTO video (`+videoColumns+`)
			VALUES (:id, :course_id, :youtube_url, :title, :description, :position, :created_at)`,
			toVideoRow(vid),
		); err != nil {
			return nil, errors.Wrap(err, "replacing videos")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "replacing videos")
	}
	return vids, nil
}

type videoProgressRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	VideoID   string    `db:"video_id"`
	Completed bool      `db:"completed"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (r videoProgressRow) toDomain() course.VideoProgress {
	return course.VideoProgress{
		ID:        r.ID,
		UserID:    r.UserID,
		VideoID:   r.VideoID,
		Completed: r.Completed,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (repo courseRepository) GetVideoProgress(userID, videoID string) (course.VideoProgress, error) {
	var row videoProgressRow
	err := repo.db.Get(&row, `
		SELECT id, user_id, video_id, completed, updated_at
		FROM video_progress
		WHERE user_id = $1 AND video_id = $2`,
		userID, videoID,
	)
	if err != nil {
		return course.VideoProgress{}, trapNoRows(err, course.ErrNotFound, "getting video progress")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) UpsertVideoProgress(vp course.VideoProgress) (course.VideoProgress, error) {
	row := videoProgressRow{
		ID:        vp.ID,
		UserID:    vp.UserID,
		VideoID:   vp.VideoID,
		Completed: vp.Completed,
		UpdatedAt: null.TimeFrom(vp.UpdatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO video_progress (id, user_id, video_id, completed, updated_at)
		VALUES (:id, :user_id, :video_id, :completed, :updated_at)
		ON CONFLICT (user_id, video_id)
		DO UPDATE SET completed = EXCLUDED.completed, updated_at = EXCLUDED.updated_at`,
		row,
	)
	if err != nil {
		return course.VideoProgress{}, errors.Wrap(err, "upserting video progress")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) QueryVideoProgress(userID, courseID string) ([]course.VideoProgress, error) {
	var rows []videoProgressRow
	err := repo.db.Select(&rows, `
		SELECT vp.id, vp.user_id, vp.video_id, vp.completed, vp.updated_at
		FROM video_progress vp
		JOIN video v ON v.id = vp.video_id
		WHERE vp.user_id = $1 AND v.course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying video progress")
	}
	progress := make([]course.VideoProgress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.toDomain())
	}
	return progress, nil
}

type courseProgressRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	CourseID        string    `db:"course_id"`
	CompletedVideos int       `db:"completed_videos"`
	TotalVideos     int       `db:"total_videos"`
	ProgressPercent float64   `db:"progress_percent"`
	Completed       bool      `db:"completed"`
	UpdatedAt       null.Time `db:"updated_at"`
}

func (r courseProgressRow) toDomain() course.CourseProgress {
	return course.CourseProgress{
		ID:              r.ID,
		UserID:          r.UserID,
		CourseID:        r.CourseID,
		CompletedVideos: r.CompletedVideos,
		TotalVideos:     r.TotalVideos,
		ProgressPercent: r.ProgressPercent,
		Completed:       r.Completed,
		UpdatedAt:       r.UpdatedAt.Time,
	}
}

func (repo courseRepository) GetCourseProgress(userID, courseID string) (course.CourseProgress, error) {
	var row courseProgressRow
	err := repo.db.Get(&row, `
		SELECT id, user_id, course_id, completed_videos, total_videos, progress_percent, completed, updated_at
		FROM course_progress
		WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return course.CourseProgress{}, trapNoRows(err, course.ErrNotFound, "getting course progress")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) UpsertCourseProgress(cp course.CourseProgress) (course.CourseProgress, error) {
	row := courseProgressRow{
		ID:              cp.ID,
		UserID:          cp.UserID,
		CourseID:        cp.CourseID,
		CompletedVideos: cp.CompletedVideos,
		TotalVideos:     cp.TotalVideos,
		ProgressPercent: cp.ProgressPercent,
		Completed:       cp.Completed,
		UpdatedAt:       null.TimeFrom(cp.UpdatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO course_progress (id, user_id, course_id, completed_videos, total_videos, progress_percent, completed, updated_at)
		VALUES (:id, :user_id, :course_id, :completed_videos, :total_videos, :progress_percent, :completed, :updated_at)
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET completed_videos = EXCLUDED.completed_videos, total_videos = EXCLUDED.total_videos,
		              progress_percent = EXCLUDED.progress_percent, completed = EXCLUDED.completed,
		              updated_at = EXCLUDED.updated_at`,
		row,
	)
	if err != nil {
		return course.CourseProgress{}, errors.Wrap(err, "upserting course progress")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) AverageProgress(courseID string) (float64, error) {
	var avg float64
	err := repo.db.Get(&avg, `
		SELECT COALESCE(AVG(progress_percent), 0)
		FROM course_progress
		WHERE course_id = $1`,
		courseID,
	)
	return avg, errors.Wrap(err, "averaging course progress")
}

type feedbackRow struct {
	ID        string    `db:"id"`
	CourseID  string    `db:"course_id"`
	UserID    string    `db:"user_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt null.Time `db:"created_at"`
}

func (r feedbackRow) toDomain() course.Feedback {
	return course.Feedback{
		ID:        r.ID,
		CourseID:  r.CourseID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.Time,
	}
}

func (repo courseRepository) CreateFeedback(fb course.Feedback) (course.Feedback, error) {
	row := feedbackRow{
		ID:        fb.ID,
		CourseID:  fb.CourseID,
		UserID:    fb.UserID,
		Rating:    fb.Rating,
		Comment:   fb.Comment,
		CreatedAt: null.TimeFrom(fb.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO course_feedback (id, course_id, user_id, rating, comment, created_at)
		VALUES (:id, :course_id, :user_id, :rating, :comment, :created_at)`,
		row,
	)
	if err != nil {
		return course.Feedback{}, errors.Wrap(err, "inserting course feedback")
	}
	return row.toDomain(), nil
}

func (repo courseRepository) QueryFeedbackByCourse(courseID string) ([]course.Feedback, error) {
	var rows []feedbackRow
	err := repo.db.Select(&rows, `
		SELECT id, course_id, user_id, rating, comment, created_at
		FROM course_feedback
		WHERE course_id = $1
		ORDER BY created_at DESC`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying course feedback")
	}
	feedback := make([]course.Feedback, 0, len(rows))
	for _, r := range rows {
		feedback = append(feedback, r.toDomain())
	}
	return feedback, nil
}
