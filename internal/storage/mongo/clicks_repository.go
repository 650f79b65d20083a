package mongo

import (
	"context"
	"time"

	"github.com/linklytics/linklytics/internal/infrastructure/db"
	"github.com/linklytics/linklytics/internal/processing/clicks"
	"github.com/linklytics/linklytics/internal/processing/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const clicksCollectionName = "clicks"

// ClicksRepository is the append-only click event store plus the whole
// aggregation query surface the stats engine runs on. All ranking pipelines
// carry a secondary ascending sort on the group key so repeated calls over
// unchanged data return identical order.
type ClicksRepository struct {
	coll *mongo.Collection
}

type clickDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	LinkID         string             `bson:"linkId"`
	CreatedAt      time.Time          `bson:"createdAt"`
	IPAddress      string             `bson:"ipAddress"`
	UserAgent      string             `bson:"userAgent,omitempty"`
	DeviceType     string             `bson:"deviceType"`
	Browser        string             `bson:"browser,omitempty"`
	BrowserVersion string             `bson:"browserVersion,omitempty"`
	OS             string             `bson:"os,omitempty"`
	OSVersion      string             `bson:"osVersion,omitempty"`
	DeviceVendor   string             `bson:"deviceVendor,omitempty"`
	DeviceModel    string             `bson:"deviceModel,omitempty"`
	Country        string             `bson:"country,omitempty"`
	Region         string             `bson:"region,omitempty"`
	City           string             `bson:"city,omitempty"`
	Timezone       string             `bson:"timezone,omitempty"`
	ISP            string             `bson:"isp,omitempty"`
	Referrer       string             `bson:"referrer,omitempty"`
}

func NewClicksRepository(m *db.Mongo) (*ClicksRepository, error) {
	repo := &ClicksRepository{coll: m.Collection(clicksCollectionName)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("linkId_createdAt"),
		},
		{
			Keys:    bson.D{{Key: "deviceType", Value: 1}},
			Options: options.Index().SetName("deviceType"),
		},
		{
			Keys:    bson.D{{Key: "country", Value: 1}},
			Options: options.Index().SetName("country"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *ClicksRepository) Insert(ctx context.Context, ev *clicks.Event) error {
	doc := clickDoc{
		LinkID:         ev.LinkID,
		CreatedAt:      ev.Timestamp.UTC(),
		IPAddress:      ev.IPAddress,
		UserAgent:      ev.UserAgent,
		DeviceType:     string(ev.DeviceType),
		Browser:        ev.Browser,
		BrowserVersion: ev.BrowserVersion,
		OS:             ev.OS,
		OSVersion:      ev.OSVersion,
		DeviceVendor:   ev.DeviceVendor,
		DeviceModel:    ev.DeviceModel,
		Country:        ev.Country,
		Region:         ev.Region,
		City:           ev.City,
		Timezone:       ev.Timezone,
		ISP:            ev.ISP,
		Referrer:       ev.Referrer,
	}

	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

func (r *ClicksRepository) CountAll(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *ClicksRepository) CountByLink(ctx context.Context, linkID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"linkId": linkID})
}

func (r *ClicksRepository) CountUniqueIPs(ctx context.Context, linkID string) (int64, error) {
	pipeline := mongo.Pipeline{
		matchStage(bson.M{"linkId": linkID}),
		{{Key: "$group", Value: bson.M{"_id": "$ipAddress"}}},
		{{Key: "$count", Value: "n"}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		N int64 `bson:"n"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	if err := cur.Err(); err != nil {
		return 0, err
	}

	return row.N, nil
}

func (r *ClicksRepository) DeviceCounts(ctx context.Context, linkID string) ([]stats.DeviceCount, error) {
	pipeline := mongo.Pipeline{}
	if linkID != "" {
		pipeline = append(pipeline, matchStage(bson.M{"linkId": linkID}))
	}
	pipeline = append(pipeline,
		groupCountStage("$deviceType"),
		sortByCountStage(),
	)

	rows, err := r.aggregateKeyCounts(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]stats.DeviceCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.DeviceCount{Type: row.Key, Count: row.Count})
	}
	return out, nil
}

func (r *ClicksRepository) CountryCounts(ctx context.Context, linkID string, limit int64, excludeMissing bool) ([]stats.NameCount, error) {
	match := bson.M{}
	if linkID != "" {
		match["linkId"] = linkID
	}
	if excludeMissing {
		match["country"] = bson.M{"$exists": true, "$nin": bson.A{nil, ""}}
	}

	pipeline := mongo.Pipeline{}
	if len(match) > 0 {
		pipeline = append(pipeline, matchStage(match))
	}
	pipeline = append(pipeline,
		groupCountStage("$country"),
		sortByCountStage(),
		limitStage(limit),
	)

	rows, err := r.aggregateKeyCounts(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]stats.NameCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.NameCount{Name: row.Key, Count: row.Count})
	}
	return out, nil
}

func (r *ClicksRepository) BrowserCounts(ctx context.Context, linkID string, limit int64) ([]stats.VersionedCount, error) {
	return r.versionedCounts(ctx, linkID, "$browser", "$browserVersion", limit)
}

func (r *ClicksRepository) OSCounts(ctx context.Context, linkID string, limit int64) ([]stats.VersionedCount, error) {
	return r.versionedCounts(ctx, linkID, "$os", "$osVersion", limit)
}

func (r *ClicksRepository) ReferrerCounts(ctx context.Context, linkID string, limit int64) ([]stats.ReferrerCount, error) {
	pipeline := mongo.Pipeline{
		matchStage(bson.M{
			"linkId":   linkID,
			"referrer": bson.M{"$exists": true, "$nin": bson.A{nil, ""}},
		}),
		groupCountStage("$referrer"),
		sortByCountStage(),
		limitStage(limit),
	}

	rows, err := r.aggregateKeyCounts(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]stats.ReferrerCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.ReferrerCount{URL: row.Key, Count: row.Count})
	}
	return out, nil
}

func (r *ClicksRepository) ISPCounts(ctx context.Context, linkID string, limit int64) ([]stats.NameCount, error) {
	pipeline := mongo.Pipeline{
		matchStage(bson.M{
			"linkId": linkID,
			"isp":    bson.M{"$exists": true, "$nin": bson.A{nil, ""}},
		}),
		groupCountStage("$isp"),
		sortByCountStage(),
		limitStage(limit),
	}

	rows, err := r.aggregateKeyCounts(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]stats.NameCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.NameCount{Name: row.Key, Count: row.Count})
	}
	return out, nil
}

// DailyCounts groups events at or after since by UTC calendar day,
// ascending. Days with no events are not synthesized.
func (r *ClicksRepository) DailyCounts(ctx context.Context, linkID string, since time.Time) ([]stats.DailyCount, error) {
	match := bson.M{"createdAt": bson.M{"$gte": since.UTC()}}
	if linkID != "" {
		match["linkId"] = linkID
	}

	pipeline := mongo.Pipeline{
		matchStage(match),
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format": "%Y-%m-%d",
				"date":   "$createdAt",
			}},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	rows, err := r.aggregateKeyCounts(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	out := make([]stats.DailyCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, stats.DailyCount{Date: row.Key, Count: row.Count})
	}
	return out, nil
}

func (r *ClicksRepository) HourlyCounts(ctx context.Context, linkID string) ([]stats.HourBucket, error) {
	pipeline := mongo.Pipeline{
		matchStage(bson.M{"linkId": linkID}),
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$hour": "$createdAt"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []stats.HourBucket
	for cur.Next(ctx) {
		var row struct {
			Hour  int32 `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, stats.HourBucket{Hour: int(row.Hour), Count: row.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// PopularLinks groups all clicks by linkId, ranks by count, then joins each
// group key back to its link document. Groups whose link no longer resolves
// are dropped by the $unwind.
func (r *ClicksRepository) PopularLinks(ctx context.Context, limit int64) ([]stats.PopularLink, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":    "$linkId",
			"clicks": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "clicks", Value: -1}, {Key: "_id", Value: 1}}}},
		limitStage(limit),
		{{Key: "$lookup", Value: bson.M{
			"from":         linksCollectionName,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "link",
		}}},
		{{Key: "$unwind", Value: "$link"}},
		{{Key: "$project", Value: bson.M{
			"_id":         0,
			"linkId":      "$_id",
			"originalURL": "$link.originalURL",
			"alias":       "$link.alias",
			"clicks":      1,
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []stats.PopularLink
	for cur.Next(ctx) {
		var row struct {
			LinkID      string `bson:"linkId"`
			OriginalURL string `bson:"originalURL"`
			Alias       string `bson:"alias"`
			Clicks      int64  `bson:"clicks"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, stats.PopularLink{
			LinkID:      row.LinkID,
			OriginalURL: row.OriginalURL,
			Alias:       row.Alias,
			Clicks:      row.Clicks,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ClicksRepository) versionedCounts(ctx context.Context, linkID, nameField, versionField string, limit int64) ([]stats.VersionedCount, error) {
	pipeline := mongo.Pipeline{
		matchStage(bson.M{"linkId": linkID}),
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"name":    nameField,
				"version": versionField,
			},
			"count": bson.M{"$sum": 1},
		}}},
		sortByCountStage(),
		limitStage(limit),
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []stats.VersionedCount
	for cur.Next(ctx) {
		var row struct {
			Key struct {
				Name    string `bson:"name"`
				Version string `bson:"version"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, stats.VersionedCount{
			Name:    row.Key.Name,
			Version: row.Key.Version,
			Count:   row.Count,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// keyCount decodes a {_id, count} group row. A nil _id (missing attribute)
// decodes as the empty string.
type keyCount struct {
	Key   string
	Count int64
}

func (r *ClicksRepository) aggregateKeyCounts(ctx context.Context, pipeline mongo.Pipeline) ([]keyCount, error) {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []keyCount
	for cur.Next(ctx) {
		var row struct {
			Key   *string `bson:"_id"`
			Count int64   `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		kc := keyCount{Count: row.Count}
		if row.Key != nil {
			kc.Key = *row.Key
		}
		out = append(out, kc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func matchStage(filter bson.M) bson.D {
	return bson.D{{Key: "$match", Value: filter}}
}

func groupCountStage(keyExpr string) bson.D {
	return bson.D{{Key: "$group", Value: bson.M{
		"_id":   keyExpr,
		"count": bson.M{"$sum": 1},
	}}}
}

func sortByCountStage() bson.D {
	return bson.D{{Key: "$sort", Value: bson.D{
		{Key: "count", Value: -1},
		{Key: "_id", Value: 1},
	}}}
}

func limitStage(limit int64) bson.D {
	if limit <= 0 {
		limit = 10
	}
	return bson.D{{Key: "$limit", Value: limit}}
}
