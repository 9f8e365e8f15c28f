package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/soko/core/user"
)

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *mongo.Database) user.Repository {
	return &userRepository{coll: db.Collection(usersCollection)}
}

type userDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Email           string    `bson:"email"`
	ImageURL        string    `bson:"imageUrl"`
	Role            string    `bson:"role,omitempty"`
	EnrolledCourses []string  `bson:"enrolledCourses"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func newUserDoc(usr user.User) userDoc {
	if usr.EnrolledCourses == nil {
		usr.EnrolledCourses = []string{}
	}
	return userDoc{
		ID:              usr.ID,
		Name:            usr.Name,
		Email:           usr.Email,
		ImageURL:        usr.ImageURL,
		Role:            usr.Role,
		EnrolledCourses: usr.EnrolledCourses,
		CreatedAt:       usr.CreatedAt,
		UpdatedAt:       usr.UpdatedAt,
	}
}

func (doc userDoc) user() user.User {
	return user.User{
		ID:              doc.ID,
		Name:            doc.Name,
		Email:           doc.Email,
		ImageURL:        doc.ImageURL,
		Role:            doc.Role,
		EnrolledCourses: doc.EnrolledCourses,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.coll.InsertOne(ctx, newUserDoc(usr)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrAlreadyExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, id string) (user.User, error) {
	var doc userDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return doc.user(), nil
}

func (repo *userRepository) GetUsersByID(ctx context.Context, ids []string) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cur, err := repo.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "finding users")
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc userDoc
		if err = cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding user")
		}
		users = append(users, doc.user())
	}
	return users, errors.Wrap(cur.Err(), "iterating users")
}

func (repo *userRepository) UpdateUserProfile(ctx context.Context, id, name, email, imageURL string) (user.User, error) {
	update := bson.M{"$set": bson.M{
		"name":      name,
		"email":     email,
		"imageUrl":  imageURL,
		"updatedAt": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return doc.user(), nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if res.DeletedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) SetUserRole(ctx context.Context, id, role string) error {
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()}}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errors.Wrap(err, "setting user role")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) AddEnrolledCourse(ctx context.Context, userID, courseID string) error {
	update := bson.M{
		"$addToSet": bson.M{"enrolledCourses": courseID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := repo.coll.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return errors.Wrap(err, "adding enrolled course")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}
