package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/soko/core/course"
)

type courseRepository struct {
	coll *mongo.Collection
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *mongo.Database) course.Repository {
	return &courseRepository{coll: db.Collection(coursesCollection)}
}

type (
	courseDoc struct {
		ID               string       `bson:"_id"`
		Title            string       `bson:"courseTitle"`
		Description      string       `bson:"courseDescription"`
		Price            float64      `bson:"coursePrice"`
		Discount         float64      `bson:"discount"`
		Thumbnail        string       `bson:"courseThumbnail"`
		Published        bool         `bson:"isPublished"`
		Educator         string       `bson:"educator"`
		Content          []chapterDoc `bson:"courseContent"`
		EnrolledStudents []string     `bson:"enrolledStudents"`
		Ratings          []ratingDoc  `bson:"courseRatings"`
		CreatedAt        time.Time    `bson:"createdAt"`
		UpdatedAt        time.Time    `bson:"updatedAt"`
	}

	chapterDoc struct {
		ID       string       `bson:"chapterId"`
		Order    int          `bson:"chapterOrder"`
		Title    string       `bson:"chapterTitle"`
		Lectures []lectureDoc `bson:"chapterContent"`
	}

	lectureDoc struct {
		ID          string  `bson:"lectureId"`
		Title       string  `bson:"lectureTitle"`
		Duration    float64 `bson:"lectureDuration"`
		URL         string  `bson:"lectureUrl"`
		FreePreview bool    `bson:"isPreviewFree"`
		Order       int     `bson:"lectureOrder"`
	}

	ratingDoc struct {
		UserID string `bson:"userId"`
		Value  int    `bson:"rating"`
	}
)

func newCourseDoc(crs course.Course) courseDoc {
	doc := courseDoc{
		ID:               crs.ID,
		Title:            crs.Title,
		Description:      crs.Description,
		Price:            crs.Price,
		Discount:         crs.Discount,
		Thumbnail:        crs.Thumbnail,
		Published:        crs.Published,
		Educator:         crs.Educator,
		Content:          make([]chapterDoc, 0, len(crs.Content)),
		EnrolledStudents: crs.EnrolledStudents,
		Ratings:          make([]ratingDoc, 0, len(crs.Ratings)),
		CreatedAt:        crs.CreatedAt,
		UpdatedAt:        crs.UpdatedAt,
	}
	if doc.EnrolledStudents == nil {
		doc.EnrolledStudents = []string{}
	}
	for _, ch := range crs.Content {
		chDoc := chapterDoc{
			ID:       ch.ID,
			Order:    ch.Order,
			Title:    ch.Title,
			Lectures: make([]lectureDoc, 0, len(ch.Lectures)),
		}
		for _, lec := range ch.Lectures {
			chDoc.Lectures = append(chDoc.Lectures, lectureDoc(lec))
		}
		doc.Content = append(doc.Content, chDoc)
	}
	for _, r := range crs.Ratings {
		doc.Ratings = append(doc.Ratings, ratingDoc(r))
	}
	return doc
}

func (doc courseDoc) course() course.Course {
	crs := course.Course{
		ID:               doc.ID,
		Title:            doc.Title,
		Description:      doc.Description,
		Price:            doc.Price,
		Discount:         doc.Discount,
		Thumbnail:        doc.Thumbnail,
		Published:        doc.Published,
		Educator:         doc.Educator,
		Content:          make([]course.Chapter, 0, len(doc.Content)),
		EnrolledStudents: doc.EnrolledStudents,
		Ratings:          make([]course.Rating, 0, len(doc.Ratings)),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	for _, chDoc := range doc.Content {
		ch := course.Chapter{
			ID:       chDoc.ID,
			Order:    chDoc.Order,
			Title:    chDoc.Title,
			Lectures: make([]course.Lecture, 0, len(chDoc.Lectures)),
		}
		for _, lecDoc := range chDoc.Lectures {
			ch.Lectures = append(ch.Lectures, course.Lecture(lecDoc))
		}
		crs.Content = append(crs.Content, ch)
	}
	for _, rDoc := range doc.Ratings {
		crs.Ratings = append(crs.Ratings, course.Rating(rDoc))
	}
	return crs
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	if _, err := repo.coll.InsertOne(ctx, newCourseDoc(crs)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	var doc courseDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return doc.course(), nil
}

func (repo *courseRepository) GetCoursesByID(ctx context.Context, ids []string) ([]course.Course, error) {
	if len(ids) == 0 {
		return []course.Course{}, nil
	}
	return repo.query(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (repo *courseRepository) QueryPublishedCourses(ctx context.Context) ([]course.Course, error) {
	return repo.query(ctx, bson.M{"isPublished": true})
}

func (repo *courseRepository) QueryCoursesByEducator(ctx context.Context, educatorID string) ([]course.Course, error) {
	return repo.query(ctx, bson.M{"educator": educatorID})
}

func (repo *courseRepository) query(ctx context.Context, filter bson.M) ([]course.Course, error) {
	cur, err := repo.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "finding courses")
	}
	defer func() { _ = cur.Close(ctx) }()

	courses := make([]course.Course, 0)
	for cur.Next(ctx) {
		var doc courseDoc
		if err = cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding course")
		}
		courses = append(courses, doc.course())
	}
	return courses, errors.Wrap(cur.Err(), "iterating courses")
}

func (repo *courseRepository) AddEnrolledStudent(ctx context.Context, courseID, userID string) error {
	update := bson.M{
		"$addToSet": bson.M{"enrolledStudents": userID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": courseID}, update)
	if err != nil {
		return errors.Wrap(err, "adding enrolled student")
	}
	if res.MatchedCount == 0 {
		return course.ErrNotFound
	}
	return nil
}

// SetCourseRating replaces the user's existing rating in place, falling back
// to a push when the user has not rated the course yet.
func (repo *courseRepository) SetCourseRating(ctx context.Context, courseID string, r course.Rating) error {
	now := time.Now().UTC()

	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": courseID, "courseRatings.userId": r.UserID},
		bson.M{"$set": bson.M{"courseRatings.$.rating": r.Value, "updatedAt": now}},
	)
	if err != nil {
		return errors.Wrap(err, "replacing course rating")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	res, err = repo.coll.UpdateOne(ctx,
		bson.M{"_id": courseID},
		bson.M{
			"$push": bson.M{"courseRatings": ratingDoc(r)},
			"$set":  bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return errors.Wrap(err, "adding course rating")
	}
	if res.MatchedCount == 0 {
		return course.ErrNotFound
	}
	return nil
}
