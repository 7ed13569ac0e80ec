package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/models"
)

type MongoClient struct {
	client  *mongo.Client
	users   *mongo.Collection
	history *mongo.Collection
}

func NewMongoClient(ctx context.Context, cfg *config.Config) (*MongoClient, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is empty")
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(20).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(cfg.MongoDB)
	c := &MongoClient{
		client:  client,
		users:   database.Collection("users"),
		history: database.Collection("history"),
	}
	if err := c.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *MongoClient) ensureIndexes(ctx context.Context) error {
	_, err := c.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users email index: %w", err)
	}

	_, err = c.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("history user index: %w", err)
	}
	return nil
}

func (c *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

func (c *MongoClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	if _, err := c.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (c *MongoClient) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := c.users.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (c *MongoClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.findUser(ctx, bson.M{"email": email})
}

func (c *MongoClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.findUser(ctx, bson.M{"_id": id})
}

func (c *MongoClient) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	res, err := c.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"google_id": googleID, "auth_provider": "google"}},
	)
	if err != nil {
		return fmt.Errorf("link google id: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (c *MongoClient) InsertHistory(ctx context.Context, rec *models.AssessmentRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if _, err := c.history.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (c *MongoClient) ListHistory(ctx context.Context, userID string) ([]models.AssessmentRecord, error) {
	cur, err := c.history.Find(ctx,
		bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find history: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]models.AssessmentRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return out, nil
}

type countBucket struct {
	ID    string `bson:"_id"`
	Count int    `bson:"count"`
}

type countRow struct {
	Count int `bson:"count"`
}

type avgRow struct {
	Value *float64 `bson:"avg_value"`
}

type analyticsFacets struct {
	Total    []countRow    `bson:"total_assessments"`
	CarTypes []countBucket `bson:"car_type_distribution"`
	Severity []countBucket `bson:"severity_distribution"`
	Average  []avgRow      `bson:"average_cost"`
}

// AnalyticsPipeline is the fixed aggregation behind the analytics endpoints.
func AnalyticsPipeline(userID string) mongo.Pipeline {
	groupBy := func(field string) bson.A {
		return bson.A{bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		{{Key: "$facet", Value: bson.D{
			{Key: "total_assessments", Value: bson.A{bson.D{{Key: "$count", Value: "count"}}}},
			{Key: "car_type_distribution", Value: groupBy("car_type")},
			{Key: "severity_distribution", Value: groupBy("severity")},
			{Key: "average_cost", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{
					{Key: "avg_cost", Value: bson.D{{Key: "$avg", Value: bson.A{"$estimated_cost.min_cost", "$estimated_cost.max_cost"}}}},
				}}},
				bson.D{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "avg_value", Value: bson.D{{Key: "$avg", Value: "$avg_cost"}}},
				}}},
			}},
		}}},
	}
}

func (c *MongoClient) Analytics(ctx context.Context, userID string) (*models.Analytics, error) {
	cur, err := c.history.Aggregate(ctx, AnalyticsPipeline(userID))
	if err != nil {
		return nil, fmt.Errorf("aggregate analytics: %w", err)
	}
	defer cur.Close(ctx)

	var facets []analyticsFacets
	if err := cur.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("decode analytics: %w", err)
	}

	out := &models.Analytics{
		CarTypeDistribution:  map[string]int{},
		SeverityDistribution: map[string]int{},
	}
	if len(facets) == 0 {
		return out, nil
	}

	f := facets[0]
	if len(f.Total) > 0 {
		out.TotalAssessments = f.Total[0].Count
	}
	for _, b := range f.CarTypes {
		countKey(out.CarTypeDistribution, b.ID, b.Count)
	}
	for _, b := range f.Severity {
		countKey(out.SeverityDistribution, b.ID, b.Count)
	}
	if len(f.Average) > 0 && f.Average[0].Value != nil {
		out.AverageCost = round2(*f.Average[0].Value)
	}
	return out, nil
}

var _ core.DbClient = (*MongoClient)(nil)
