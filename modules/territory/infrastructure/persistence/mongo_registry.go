package persistence

import (
	"context"
	"regexp"

	gerrors "github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iota-uz/territory-status/modules/territory/domain/territory"
)

// legacyStatusFields predate the bucketed histories and are removed on wipe.
var legacyStatusFields = []string{
	"current_occupation_status",
	"occupation_start_date",
	"occupation_end_date",
	"last_occupation_update",
}

var statusFields = []string{
	"occupation_history",
	"combat_history",
	"status_history",
	"current_status",
	"status_start_date",
	"status_end_date",
	"last_status_update",
	"last_import_id",
}

var historyFields = map[territory.HistoryBucket]string{
	territory.BucketOccupation: "occupation_history",
	territory.BucketCombat:     "combat_history",
	territory.BucketGeneral:    "status_history",
}

// MongoRegistry keeps one collection per partition with the code as _id.
type MongoRegistry struct {
	db *mongo.Database
}

func NewMongoRegistry(db *mongo.Database) territory.Registry {
	return &MongoRegistry{db: db}
}

func (r *MongoRegistry) coll(p territory.Partition) *mongo.Collection {
	return r.db.Collection(string(p))
}

func byCode() *options.FindOneOptions {
	return options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})
}

func (r *MongoRegistry) findOne(ctx context.Context, p territory.Partition, filter bson.M) (territory.Territory, error) {
	var t territory.Territory
	err := r.coll(p).FindOne(ctx, filter, byCode()).Decode(&t)
	if gerrors.Is(err, mongo.ErrNoDocuments) {
		return territory.Territory{}, territory.ErrNotFound
	}
	if err != nil {
		return territory.Territory{}, gerrors.Wrapf(err, "find in %s", p)
	}
	return t, nil
}

func (r *MongoRegistry) GetByCode(ctx context.Context, code string) (territory.Territory, error) {
	for _, p := range territory.Partitions() {
		t, err := r.findOne(ctx, p, bson.M{"_id": code})
		if gerrors.Is(err, territory.ErrNotFound) {
			continue
		}
		return t, err
	}
	return territory.Territory{}, territory.ErrNotFound
}

func (r *MongoRegistry) FindByName(ctx context.Context, p territory.Partition, name string) (territory.Territory, error) {
	return r.findOne(ctx, p, bson.M{"name": name})
}

func (r *MongoRegistry) FindByNameFold(ctx context.Context, p territory.Partition, fragment string) (territory.Territory, error) {
	return r.findOne(ctx, p, bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(fragment), "$options": "i"}})
}

func (r *MongoRegistry) UpdateStatus(ctx context.Context, code string, upd territory.StatusUpdate) error {
	field, ok := historyFields[upd.Bucket]
	if !ok {
		return gerrors.Errorf("unknown history bucket %q", upd.Bucket)
	}
	set := bson.M{
		field:                upd.History,
		"current_status":     upd.CurrentStatus,
		"last_status_update": upd.LastStatusUpdate.UTC(),
		"last_import_id":     upd.LastImportID,
	}
	unset := bson.M{}
	if upd.StatusStartDate != nil {
		set["status_start_date"] = *upd.StatusStartDate
	} else {
		unset["status_start_date"] = ""
	}
	if upd.StatusEndDate != nil {
		set["status_end_date"] = *upd.StatusEndDate
	} else {
		unset["status_end_date"] = ""
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	for _, p := range territory.Partitions() {
		res, err := r.coll(p).UpdateOne(ctx, bson.M{"_id": code}, update)
		if err != nil {
			return gerrors.Wrapf(err, "update status of %s", code)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return territory.ErrNotFound
}

func anyStatusFieldFilter() bson.M {
	fields := append(append([]string{}, statusFields...), legacyStatusFields...)
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: bson.M{"$exists": true}})
	}
	return bson.M{"$or": or}
}

func (r *MongoRegistry) ClearStatus(ctx context.Context, p territory.Partition) (int, error) {
	unset := bson.M{}
	for _, f := range statusFields {
		unset[f] = ""
	}
	for _, f := range legacyStatusFields {
		unset[f] = ""
	}
	res, err := r.coll(p).UpdateMany(ctx, anyStatusFieldFilter(), bson.M{"$unset": unset})
	if err != nil {
		return 0, gerrors.Wrapf(err, "clear status in %s", p)
	}
	return int(res.ModifiedCount), nil
}

func hasHistoryFilter() bson.M {
	or := bson.A{}
	for _, b := range territory.Buckets() {
		or = append(or, bson.M{historyFields[b]: bson.M{"$exists": true, "$ne": nil}})
	}
	return bson.M{"$or": or}
}

func (r *MongoRegistry) ListWithStatus(ctx context.Context, p territory.Partition, filter territory.StatusFilter) ([]territory.Territory, error) {
	query := hasHistoryFilter()
	if filter.Status != "" {
		or := bson.A{}
		for _, b := range territory.Buckets() {
			or = append(or, bson.M{historyFields[b] + ".status": string(filter.Status)})
		}
		query = bson.M{"$or": or}
	}
	cur, err := r.coll(p).Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, gerrors.Wrapf(err, "list %s", p)
	}
	var out []territory.Territory
	if err := cur.All(ctx, &out); err != nil {
		return nil, gerrors.Wrapf(err, "decode %s", p)
	}
	return out, nil
}

func (r *MongoRegistry) ReplaceHistories(ctx context.Context, t territory.Territory) error {
	set := bson.M{}
	unset := bson.M{}
	for _, b := range territory.Buckets() {
		if h := t.History(b); h != nil {
			set[historyFields[b]] = h
		} else {
			unset[historyFields[b]] = ""
		}
	}
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	p, ok := t.Category.Partition()
	if !ok {
		stored, err := r.GetByCode(ctx, t.Code)
		if err != nil {
			return err
		}
		p = stored.Partition()
	}
	res, err := r.coll(p).UpdateOne(ctx, bson.M{"_id": t.Code}, update)
	if err != nil {
		return gerrors.Wrapf(err, "replace histories of %s", t.Code)
	}
	if res.MatchedCount == 0 {
		return territory.ErrNotFound
	}
	return nil
}

func (r *MongoRegistry) Count(ctx context.Context, p territory.Partition) (int, error) {
	n, err := r.coll(p).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, gerrors.Wrapf(err, "count %s", p)
	}
	return int(n), nil
}

func (r *MongoRegistry) CountWithStatus(ctx context.Context, p territory.Partition) (int, error) {
	n, err := r.coll(p).CountDocuments(ctx, hasHistoryFilter())
	if err != nil {
		return 0, gerrors.Wrapf(err, "count %s", p)
	}
	return int(n), nil
}

func (r *MongoRegistry) Upsert(ctx context.Context, t territory.Territory) error {
	p, ok := t.Category.Partition()
	if !ok {
		return ErrUnknownCategory
	}
	set := bson.M{"name": t.Name, "category": string(t.Category)}
	update := bson.M{"$set": set}
	if t.ParentCode != "" {
		set["parent_code"] = t.ParentCode
	} else {
		update["$unset"] = bson.M{"parent_code": ""}
	}
	_, err := r.coll(p).UpdateOne(ctx, bson.M{"_id": t.Code}, update, options.Update().SetUpsert(true))
	if err != nil {
		return gerrors.Wrapf(err, "upsert %s", t.Code)
	}
	return nil
}

func (r *MongoRegistry) Names(ctx context.Context, p territory.Partition) ([]territory.NameRef, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"name": 1})
	cur, err := r.coll(p).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, gerrors.Wrapf(err, "names of %s", p)
	}
	defer cur.Close(ctx)

	var out []territory.NameRef
	for cur.Next(ctx) {
		var doc struct {
			Code string `bson:"_id"`
			Name string `bson:"name"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, gerrors.Wrap(err, "decode name")
		}
		out = append(out, territory.NameRef{Code: doc.Code, Name: doc.Name, Partition: p})
	}
	return out, cur.Err()
}
