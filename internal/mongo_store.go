package internal

import (
	"context"
	"errors"
	"fmt"

	"github.com/lychee-technology/studiokit"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	collSites    = "sites"
	collBlocks   = "blocks"
	collPartials = "partials"
	collPages    = "pages"
)

type refDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type siteDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	Theme    string             `bson:"theme,omitempty"`
	Blocks   []refDoc           `bson:"blocks"`
	Partials []refDoc           `bson:"partials"`
	Pages    []refDoc           `bson:"pages"`
}

type blockDoc struct {
	ID            primitive.ObjectID  `bson:"_id"`
	Name          string              `bson:"name"`
	Description   string              `bson:"description,omitempty"`
	ThumbnailType string              `bson:"thumbnailType,omitempty"`
	SiteID        primitive.ObjectID  `bson:"site_id"`
	Template      string              `bson:"template"`
	Fields        []studiokit.DbField `bson:"fields"`
}

type partialDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	SiteID   primitive.ObjectID `bson:"site_id"`
	Template string             `bson:"template"`
}

type pageSettingsDoc struct {
	Title       string `bson:"title"`
	Description string `bson:"description,omitempty"`
}

type pageBlockDoc struct {
	BlockID primitive.ObjectID                `bson:"block_id"`
	Content map[string]studiokit.FieldContent `bson:"content"`
}

type pageDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	SiteID   primitive.ObjectID `bson:"site_id"`
	Settings pageSettingsDoc    `bson:"settings"`
	Blocks   []pageBlockDoc     `bson:"blocks"`
}

// MongoStore is the Store backed by a MongoDB database. Record ids are ObjectID hex
// strings.
type MongoStore struct {
	db              *mongo.Database
	useTransactions bool
}

var _ studiokit.Store = (*MongoStore)(nil)

func NewMongoStore(db *mongo.Database, useTransactions bool) *MongoStore {
	return &MongoStore{db: db, useTransactions: useTransactions}
}

// ConnectMongo dials uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri, database string, useTransactions bool) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, studiokit.NewStorageError("connect to mongodb", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, studiokit.NewStorageError("ping mongodb", err)
	}
	return NewMongoStore(client.Database(database), useTransactions), nil
}

func objectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, studiokit.NewNotFoundError(kind, id).WithCause(err)
	}
	return oid, nil
}

func (s *MongoStore) GetSite(ctx context.Context, siteID string) (*studiokit.Site, error) {
	oid, err := objectID("site", siteID)
	if err != nil {
		return nil, err
	}
	var doc siteDoc
	if err := s.db.Collection(collSites).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, studiokit.NewNotFoundError("site", siteID)
		}
		return nil, studiokit.NewStorageError("find site", err)
	}
	return doc.toSite(), nil
}

func (s *MongoStore) ListBlocks(ctx context.Context, siteID string) ([]*studiokit.Block, error) {
	var docs []blockDoc
	if err := s.findBySite(ctx, collBlocks, siteID, &docs); err != nil {
		return nil, err
	}
	out := make([]*studiokit.Block, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toBlock())
	}
	return out, nil
}

func (s *MongoStore) ListPartials(ctx context.Context, siteID string) ([]*studiokit.Partial, error) {
	var docs []partialDoc
	if err := s.findBySite(ctx, collPartials, siteID, &docs); err != nil {
		return nil, err
	}
	out := make([]*studiokit.Partial, 0, len(docs))
	for _, d := range docs {
		out = append(out, &studiokit.Partial{ID: d.ID.Hex(), Name: d.Name, SiteID: d.SiteID.Hex(), Template: d.Template})
	}
	return out, nil
}

func (s *MongoStore) ListPages(ctx context.Context, siteID string) ([]*studiokit.Page, error) {
	var docs []pageDoc
	if err := s.findBySite(ctx, collPages, siteID, &docs); err != nil {
		return nil, err
	}
	out := make([]*studiokit.Page, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toPage())
	}
	return out, nil
}

// findBySite loads every record of a site in creation order.
func (s *MongoStore) findBySite(ctx context.Context, coll, siteID string, out any) error {
	oid, err := objectID("site", siteID)
	if err != nil {
		return err
	}
	cursor, err := s.db.Collection(coll).Find(ctx, bson.M{"site_id": oid},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return studiokit.NewStorageError("find "+coll, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return studiokit.NewStorageError("decode "+coll, err)
	}
	return nil
}

func (s *MongoStore) SaveSite(ctx context.Context, site *studiokit.Site) (*studiokit.Site, error) {
	doc, err := siteToDoc(site)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection(collSites)
	if site.ID == "" {
		doc.ID = primitive.NewObjectID()
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			return nil, studiokit.NewStorageError("insert site", err)
		}
	} else if _, err := coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return nil, studiokit.NewStorageError("replace site", err)
	}
	return doc.toSite(), nil
}

func (s *MongoStore) SaveBlock(ctx context.Context, block *studiokit.Block) (*studiokit.Block, error) {
	siteID, err := objectID("site", block.SiteID)
	if err != nil {
		return nil, err
	}
	doc := blockDoc{
		Name:          block.Name,
		Description:   block.Description,
		ThumbnailType: block.ThumbnailType,
		SiteID:        siteID,
		Template:      block.Template,
		Fields:        block.Fields,
	}
	if block.ID == "" {
		doc.ID = primitive.NewObjectID()
		if err := s.insertIndexed(ctx, collBlocks, doc, doc.ID, siteID, "blocks", doc.Name); err != nil {
			return nil, err
		}
		return doc.toBlock(), nil
	}
	if doc.ID, err = objectID("block", block.ID); err != nil {
		return nil, err
	}
	if err := s.replaceIndexed(ctx, collBlocks, doc, doc.ID, siteID, "blocks", doc.Name); err != nil {
		return nil, err
	}
	return doc.toBlock(), nil
}

func (s *MongoStore) SavePartial(ctx context.Context, partial *studiokit.Partial) (*studiokit.Partial, error) {
	siteID, err := objectID("site", partial.SiteID)
	if err != nil {
		return nil, err
	}
	doc := partialDoc{Name: partial.Name, SiteID: siteID, Template: partial.Template}
	if partial.ID == "" {
		doc.ID = primitive.NewObjectID()
		err = s.insertIndexed(ctx, collPartials, doc, doc.ID, siteID, "partials", doc.Name)
	} else if doc.ID, err = objectID("partial", partial.ID); err == nil {
		err = s.replaceIndexed(ctx, collPartials, doc, doc.ID, siteID, "partials", doc.Name)
	}
	if err != nil {
		return nil, err
	}
	return &studiokit.Partial{ID: doc.ID.Hex(), Name: doc.Name, SiteID: partial.SiteID, Template: doc.Template}, nil
}

func (s *MongoStore) CreatePage(ctx context.Context, page *studiokit.Page) (*studiokit.Page, error) {
	doc, err := pageToDoc(page)
	if err != nil {
		return nil, err
	}
	doc.ID = primitive.NewObjectID()
	if err := s.insertIndexed(ctx, collPages, doc, doc.ID, doc.SiteID, "pages", doc.Name); err != nil {
		return nil, err
	}
	return doc.toPage(), nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// insertIndexed inserts doc and appends its reference to the site index. With
// transactions both writes commit together. Without them a failed append deletes
// the inserted document again.
func (s *MongoStore) insertIndexed(ctx context.Context, coll string, doc any, id, siteID primitive.ObjectID, index, name string) error {
	insert := func(ctx context.Context) error {
		if _, err := s.db.Collection(coll).InsertOne(ctx, doc); err != nil {
			return studiokit.NewStorageError("insert into "+coll, err)
		}
		return nil
	}
	link := func(ctx context.Context) error {
		return s.pushRef(ctx, siteID, index, refDoc{ID: id, Name: name})
	}

	if s.useTransactions {
		return s.inTransaction(ctx, func(sc context.Context) error {
			if err := insert(sc); err != nil {
				return err
			}
			return link(sc)
		})
	}

	if err := insert(ctx); err != nil {
		return err
	}
	if err := link(ctx); err != nil {
		zap.S().Warnw("site index update failed, removing inserted record",
			"collection", coll, "id", id.Hex(), "siteID", siteID.Hex(), "error", err)
		if _, derr := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id}); derr != nil {
			zap.S().Errorw("compensating delete failed, record is orphaned",
				"collection", coll, "id", id.Hex(), "error", derr)
			return studiokit.NewTransactionError("append to site index and compensate", errors.Join(err, derr))
		}
		return err
	}
	return nil
}

func (s *MongoStore) replaceIndexed(ctx context.Context, coll string, doc any, id, siteID primitive.ObjectID, index, name string) error {
	res, err := s.db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return studiokit.NewStorageError("replace in "+coll, err)
	}
	if res.MatchedCount == 0 {
		return studiokit.NewNotFoundError(coll, id.Hex())
	}
	_, err = s.db.Collection(collSites).UpdateOne(ctx,
		bson.M{"_id": siteID, index + "._id": id},
		bson.M{"$set": bson.M{index + ".$.name": name}})
	if err != nil {
		return studiokit.NewStorageError("rename site index entry", err)
	}
	return nil
}

func (s *MongoStore) pushRef(ctx context.Context, siteID primitive.ObjectID, index string, ref refDoc) error {
	res, err := s.db.Collection(collSites).UpdateOne(ctx,
		bson.M{"_id": siteID},
		bson.M{"$push": bson.M{index: ref}})
	if err != nil {
		return studiokit.NewStorageError("append to site "+index, err)
	}
	if res.MatchedCount == 0 {
		return studiokit.NewNotFoundError("site", siteID.Hex())
	}
	return nil
}

func (s *MongoStore) inTransaction(ctx context.Context, fn func(context.Context) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return studiokit.NewTransactionError("start session", err)
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err != nil {
		var se *studiokit.StudioError
		if asStudioError(err, &se) {
			return err
		}
		return studiokit.NewTransactionError("commit", err)
	}
	return nil
}

func refsFromDocs(docs []refDoc) []studiokit.Ref {
	out := make([]studiokit.Ref, 0, len(docs))
	for _, d := range docs {
		out = append(out, studiokit.Ref{ID: d.ID.Hex(), Name: d.Name})
	}
	return out
}

func refsToDocs(refs []studiokit.Ref) ([]refDoc, error) {
	out := make([]refDoc, 0, len(refs))
	for _, r := range refs {
		oid, err := primitive.ObjectIDFromHex(r.ID)
		if err != nil {
			return nil, fmt.Errorf("site index entry %q: %w", r.Name, err)
		}
		out = append(out, refDoc{ID: oid, Name: r.Name})
	}
	return out, nil
}

func (d siteDoc) toSite() *studiokit.Site {
	return &studiokit.Site{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Theme:    d.Theme,
		Blocks:   refsFromDocs(d.Blocks),
		Partials: refsFromDocs(d.Partials),
		Pages:    refsFromDocs(d.Pages),
	}
}

func siteToDoc(site *studiokit.Site) (siteDoc, error) {
	doc := siteDoc{Name: site.Name, Theme: site.Theme}
	var err error
	if site.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(site.ID); err != nil {
			return siteDoc{}, studiokit.NewInternalError("site id is not an ObjectID", err)
		}
	}
	if doc.Blocks, err = refsToDocs(site.Blocks); err != nil {
		return siteDoc{}, studiokit.NewInternalError("encode site", err)
	}
	if doc.Partials, err = refsToDocs(site.Partials); err != nil {
		return siteDoc{}, studiokit.NewInternalError("encode site", err)
	}
	if doc.Pages, err = refsToDocs(site.Pages); err != nil {
		return siteDoc{}, studiokit.NewInternalError("encode site", err)
	}
	return doc, nil
}

func (d *blockDoc) toBlock() *studiokit.Block {
	fields := d.Fields
	if fields == nil {
		fields = []studiokit.DbField{}
	}
	return &studiokit.Block{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Description:   d.Description,
		ThumbnailType: d.ThumbnailType,
		SiteID:        d.SiteID.Hex(),
		Template:      d.Template,
		Fields:        fields,
	}
}

func (d *pageDoc) toPage() *studiokit.Page {
	page := &studiokit.Page{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		SiteID:   d.SiteID.Hex(),
		Settings: studiokit.PageSettings{Title: d.Settings.Title, Description: d.Settings.Description},
		Blocks:   make([]studiokit.PageBlock, 0, len(d.Blocks)),
	}
	for _, b := range d.Blocks {
		page.Blocks = append(page.Blocks, studiokit.PageBlock{BlockID: b.BlockID.Hex(), Content: b.Content})
	}
	return page
}

func pageToDoc(page *studiokit.Page) (pageDoc, error) {
	siteID, err := objectID("site", page.SiteID)
	if err != nil {
		return pageDoc{}, err
	}
	doc := pageDoc{
		Name:     page.Name,
		SiteID:   siteID,
		Settings: pageSettingsDoc{Title: page.Settings.Title, Description: page.Settings.Description},
		Blocks:   make([]pageBlockDoc, 0, len(page.Blocks)),
	}
	for _, b := range page.Blocks {
		blockID, err := objectID("block", b.BlockID)
		if err != nil {
			return pageDoc{}, err
		}
		doc.Blocks = append(doc.Blocks, pageBlockDoc{BlockID: blockID, Content: b.Content})
	}
	return doc, nil
}
