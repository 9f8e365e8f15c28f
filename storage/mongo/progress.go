package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/soko/core/progress"
)

type progressRepository struct {
	coll *mongo.Collection
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *mongo.Database) progress.Repository {
	return &progressRepository{coll: db.Collection(progressCollection)}
}

type progressDoc struct {
	UserID    string    `bson:"userId"`
	CourseID  string    `bson:"courseId"`
	Completed []string  `bson:"lectureCompleted"`
	Done      bool      `bson:"completed"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (doc progressDoc) progress() progress.Progress {
	if doc.Completed == nil {
		doc.Completed = []string{}
	}
	return progress.Progress{
		UserID:    doc.UserID,
		CourseID:  doc.CourseID,
		Completed: doc.Completed,
		Done:      doc.Done,
		UpdatedAt: doc.UpdatedAt,
	}
}

func progressFilter(userID, courseID string) bson.M {
	return bson.M{"userId": userID, "courseId": courseID}
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, courseID string) (progress.Progress, error) {
	var doc progressDoc
	if err := repo.coll.FindOne(ctx, progressFilter(userID, courseID)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return progress.Progress{}, progress.ErrNotFound
		}
		return progress.Progress{}, errors.Wrap(err, "finding course progress")
	}
	return doc.progress(), nil
}

// AddCompletedLecture upserts on the (user, course) pair; the set-add makes
// duplicate completions converge on the same record.
func (repo *progressRepository) AddCompletedLecture(ctx context.Context, userID, courseID, lectureID string) (progress.Progress, error) {
	update := bson.M{
		"$addToSet":    bson.M{"lectureCompleted": lectureID},
		"$set":         bson.M{"updatedAt": time.Now().UTC()},
		"$setOnInsert": bson.M{"completed": false},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc progressDoc
	if err := repo.coll.FindOneAndUpdate(ctx, progressFilter(userID, courseID), update, opts).Decode(&doc); err != nil {
		return progress.Progress{}, errors.Wrap(err, "recording completed lecture")
	}
	return doc.progress(), nil
}

func (repo *progressRepository) MarkProgressDone(ctx context.Context, userID, courseID string) error {
	update := bson.M{"$set": bson.M{"completed": true, "updatedAt": time.Now().UTC()}}
	res, err := repo.coll.UpdateOne(ctx, progressFilter(userID, courseID), update)
	if err != nil {
		return errors.Wrap(err, "marking course progress done")
	}
	if res.MatchedCount == 0 {
		return progress.ErrNotFound
	}
	return nil
}
