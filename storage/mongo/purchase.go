package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/soko/core/purchase"
)

type purchaseRepository struct {
	coll *mongo.Collection
}

var _ purchase.Repository = (*purchaseRepository)(nil)

func NewPurchaseRepository(db *mongo.Database) purchase.Repository {
	return &purchaseRepository{coll: db.Collection(purchasesCollection)}
}

// Amount is stored as a string to keep its exact decimal representation.
type purchaseDoc struct {
	ID        string    `bson:"_id"`
	CourseID  string    `bson:"courseId"`
	UserID    string    `bson:"userId"`
	Amount    string    `bson:"amount"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newPurchaseDoc(p purchase.Purchase) purchaseDoc {
	return purchaseDoc{
		ID:        p.ID,
		CourseID:  p.CourseID,
		UserID:    p.UserID,
		Amount:    p.Amount.String(),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (doc purchaseDoc) purchase() (purchase.Purchase, error) {
	amount, err := decimal.NewFromString(doc.Amount)
	if err != nil {
		return purchase.Purchase{}, errors.Wrap(err, "parsing purchase amount")
	}
	return purchase.Purchase{
		ID:        doc.ID,
		CourseID:  doc.CourseID,
		UserID:    doc.UserID,
		Amount:    amount,
		Status:    purchase.Status(doc.Status),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (repo *purchaseRepository) CreatePurchase(ctx context.Context, p purchase.Purchase) (purchase.Purchase, error) {
	if _, err := repo.coll.InsertOne(ctx, newPurchaseDoc(p)); err != nil {
		return purchase.Purchase{}, errors.Wrap(err, "inserting purchase")
	}
	return p, nil
}

func (repo *purchaseRepository) GetPurchase(ctx context.Context, id string) (purchase.Purchase, error) {
	var doc purchaseDoc
	if err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return purchase.Purchase{}, purchase.ErrNotFound
		}
		return purchase.Purchase{}, errors.Wrap(err, "finding purchase")
	}
	return doc.purchase()
}

// SetPurchaseStatusIf relies on the document store's single-document update
// atomicity: the filter matches only while status is still `from`, so exactly
// one of any concurrent transitions wins.
func (repo *purchaseRepository) SetPurchaseStatusIf(ctx context.Context, id string, from, to purchase.Status) (bool, error) {
	res, err := repo.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, errors.Wrap(err, "transitioning purchase status")
	}
	return res.ModifiedCount > 0, nil
}

func (repo *purchaseRepository) QueryCompletedByCourse(ctx context.Context, courseIDs []string) ([]purchase.Purchase, error) {
	purchases := make([]purchase.Purchase, 0)
	if len(courseIDs) == 0 {
		return purchases, nil
	}

	cur, err := repo.coll.Find(ctx, bson.M{
		"courseId": bson.M{"$in": courseIDs},
		"status":   string(purchase.StatusCompleted),
	})
	if err != nil {
		return nil, errors.Wrap(err, "finding purchases")
	}
	defer func() { _ = cur.Close(ctx) }()

	for cur.Next(ctx) {
		var doc purchaseDoc
		if err = cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding purchase")
		}
		p, err := doc.purchase()
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, errors.Wrap(cur.Err(), "iterating purchases")
}
