// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/pkg/uuid"
)

const accountCollection = "accounts"

// Index names double as the key for mapping duplicate-key errors to fields.
const (
	mongoEmailIndex      = "account_email_key"
	mongoNationalIDIndex = "account_nationalidnumber_key"
	mongoExternalIDIndex = "account_externalid_key"
)

// # Documents

type oneTimeDocument struct {
	Digest    string    `bson:"digest"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

type sessionDocument struct {
	IssuedAt time.Time `bson:"issuedAt"`
}

// accountDocument is the stored shape. Optional unique fields use omitempty so
// the sparse indexes skip accounts that do not have them.
type accountDocument struct {
	ID               string                     `bson:"_id"`
	Email            string                     `bson:"email"`
	PasswordHash     string                     `bson:"passwordHash,omitempty"`
	Name             string                     `bson:"name"`
	NationalIDNumber string                     `bson:"nationalIdNumber,omitempty"`
	Phone            string                     `bson:"phone"`
	Role             sec.Role                   `bson:"role"`
	Avatar           string                     `bson:"avatarPath"`
	ExternalID       string                     `bson:"externalId,omitempty"`
	Provider         Provider                   `bson:"authProvider"`
	EmailVerified    bool                       `bson:"emailVerified"`
	VerifyToken      *oneTimeDocument           `bson:"verifyToken,omitempty"`
	ResetToken       *oneTimeDocument           `bson:"resetToken,omitempty"`
	BlockedAt        *time.Time                 `bson:"blockedAt,omitempty"`
	Sessions         map[string]sessionDocument `bson:"sessions"`
	CreatedAt        time.Time                  `bson:"createdAt"`
	UpdatedAt        time.Time                  `bson:"updatedAt"`
}

// # Account Repository

// MongoAccountStore implements [AccountStore] on a MongoDB collection.
//
// The session set is an embedded map keyed by digest, so membership tests and
// removals are single-field operations inside one document update.
type MongoAccountStore struct {
	collection *mongo.Collection
}

/*
NewMongoAccountStore prepares the accounts collection and its indexes.

Parameters:
  - context: context.Context
  - database: *mongo.Database

Returns:
  - *MongoAccountStore: Ready store
  - error: Index creation failures
*/
func NewMongoAccountStore(context context.Context, database *mongo.Database) (*MongoAccountStore, error) {
	collection := database.Collection(accountCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(mongoEmailIndex),
		},
		{
			Keys:    bson.D{{Key: "nationalIdNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName(mongoNationalIDIndex),
		},
		{
			Keys:    bson.D{{Key: "externalId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName(mongoExternalIDIndex),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "verifyToken.digest", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(
				bson.M{"verifyToken.digest": bson.M{"$exists": true}},
			),
		},
		{
			Keys: bson.D{{Key: "resetToken.digest", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(
				bson.M{"resetToken.digest": bson.M{"$exists": true}},
			),
		},
	}

	if _, err := collection.Indexes().CreateMany(context, indexes); err != nil {
		return nil, fmt.Errorf("mongo_account_store_indexes_failed: %w", err)
	}

	return &MongoAccountStore{collection: collection}, nil
}

// # Lookups

// withoutSessions keeps reads O(1) in the number of sessions.
var withoutSessions = bson.M{"sessions": 0}

func (store *MongoAccountStore) FindByID(context context.Context, id string) (*Account, error) {
	return store.findOne(context, "find_by_id", bson.M{"_id": id})
}

func (store *MongoAccountStore) FindByEmail(context context.Context, email string) (*Account, error) {
	return store.findOne(context, "find_by_email", bson.M{"email": email})
}

func (store *MongoAccountStore) FindByExternalID(context context.Context, externalID string) (*Account, error) {
	if externalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findOne(context, "find_by_external_id", bson.M{"externalId": externalID})
}

/*
FindByEmailOrExternalID fetches up to two candidates in one query and prefers
the one linked to externalID.
*/
func (store *MongoAccountStore) FindByEmailOrExternalID(context context.Context, email, externalID string) (*Account, error) {
	clauses := bson.A{bson.M{"email": email}}
	if externalID != "" {
		clauses = append(clauses, bson.M{"externalId": externalID})
	}

	cursor, err := store.collection.Find(context, bson.M{"$or": clauses},
		options.Find().SetProjection(withoutSessions).SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("mongo_account_store_find_by_email_or_external_id_failed: %w", err)
	}

	var documents []accountDocument
	if err := cursor.All(context, &documents); err != nil {
		return nil, fmt.Errorf("mongo_account_store_find_by_email_or_external_id_decode_failed: %w", err)
	}
	if len(documents) == 0 {
		return nil, ErrAccountNotFound
	}

	for i := range documents {
		if externalID != "" && documents[i].ExternalID == externalID {
			return documents[i].toAccount(), nil
		}
	}
	return documents[0].toAccount(), nil
}

func (store *MongoAccountStore) FindByNationalID(context context.Context, nationalID string) (*Account, error) {
	if nationalID == "" {
		return nil, ErrAccountNotFound
	}
	return store.findOne(context, "find_by_national_id", bson.M{"nationalIdNumber": nationalID})
}

func (store *MongoAccountStore) findOne(context context.Context, op string, filter bson.M) (*Account, error) {
	var document accountDocument

	err := store.collection.FindOne(context, filter, options.FindOne().SetProjection(withoutSessions)).Decode(&document)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("mongo_account_store_%s_failed: %w", op, err)
	}
	return document.toAccount(), nil
}

// # Writes

// Create inserts a new document with an empty session map.
func (store *MongoAccountStore) Create(context context.Context, entity *Account) error {
	if entity.ID == "" {
		entity.ID = uuid.New()
	}
	now := time.Now().UTC()
	if entity.CreatedAt.IsZero() {
		entity.CreatedAt = now
	}
	entity.UpdatedAt = now

	document := fromAccount(entity)
	document.Sessions = map[string]sessionDocument{}

	if _, err := store.collection.InsertOne(context, document); err != nil {
		return translateMongoWriteError("create", err)
	}
	return nil
}

/*
Save rewrites profile and credential fields with $set and $unset.

Description: Empty optional fields are unset rather than stored as "", which
keeps them out of the sparse unique indexes. sessions, blockedAt and the
one-time token sub-documents are never part of the update.
*/
func (store *MongoAccountStore) Save(context context.Context, entity *Account) error {
	entity.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"email":         entity.Email,
		"name":          entity.Name,
		"phone":         entity.Phone,
		"role":          entity.Role,
		"avatarPath":    entity.Avatar,
		"authProvider":  entity.Provider,
		"updatedAt":     entity.UpdatedAt,
	}
	unset := bson.M{}

	optional := map[string]string{
		"passwordHash":     entity.PasswordHash,
		"nationalIdNumber": entity.NationalIDNumber,
		"externalId":       entity.ExternalID,
	}
	for field, value := range optional {
		if value == "" {
			unset[field] = ""
		} else {
			set[field] = value
		}
	}

	// Verification is one-way; false never overwrites true.
	update := bson.M{"$set": set, "$max": bson.M{"emailVerified": entity.EmailVerified}}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := store.collection.UpdateByID(context, entity.ID, update)
	if err != nil {
		return translateMongoWriteError("save", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// SetOneTimeToken writes (or unsets, when token is nil) the sub-document of purpose.
func (store *MongoAccountStore) SetOneTimeToken(context context.Context, accountID string, purpose Purpose, token *OneTimeToken) error {
	field := oneTimeField(purpose)
	now := time.Now().UTC()

	update := bson.M{"$set": bson.M{"updatedAt": now}}
	if token == nil || token.Digest == "" {
		update["$unset"] = bson.M{field: ""}
	} else {
		update["$set"] = bson.M{
			"updatedAt": now,
			field:       oneTimeDocument{Digest: token.Digest, ExpiresAt: token.ExpiresAt},
		}
	}

	result, err := store.collection.UpdateByID(context, accountID, update)
	if err != nil {
		return fmt.Errorf("mongo_account_store_set_token_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

/*
ConsumeOneTimeToken matches and clears the token in one FindOneAndUpdate.
*/
func (store *MongoAccountStore) ConsumeOneTimeToken(context context.Context, purpose Purpose, digest string, now time.Time) (*Account, error) {
	field := oneTimeField(purpose)

	filter := bson.M{
		field + ".digest":    digest,
		field + ".expiresAt": bson.M{"$gt": now},
	}
	update := bson.M{
		"$unset": bson.M{field: ""},
		"$set":   bson.M{"updatedAt": now},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutSessions)

	var document accountDocument
	if err := store.collection.FindOneAndUpdate(context, filter, update, opts).Decode(&document); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("mongo_account_store_consume_token_failed: %w", err)
	}
	return document.toAccount(), nil
}

func oneTimeField(purpose Purpose) string {
	if purpose == PurposeResetPassword {
		return "resetToken"
	}
	return "verifyToken"
}

// # Session Set

func (store *MongoAccountStore) AddSession(context context.Context, accountID, digest string, issuedAt time.Time) error {
	update := bson.M{"$set": bson.M{sessionField(digest): sessionDocument{IssuedAt: issuedAt}}}

	result, err := store.collection.UpdateByID(context, accountID, update)
	if err != nil {
		return fmt.Errorf("mongo_account_store_add_session_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

/*
RotateSession unsets oldDigest and sets newDigest in a single UpdateOne.

Description: The filter requires oldDigest to exist. MongoDB applies
single-document updates atomically, so of two concurrent rotations of the same
digest only one can match.
*/
func (store *MongoAccountStore) RotateSession(context context.Context, accountID, oldDigest, newDigest string, issuedAt time.Time) error {
	filter := bson.M{
		"_id":                   accountID,
		sessionField(oldDigest): bson.M{"$exists": true},
	}
	update := bson.M{
		"$unset": bson.M{sessionField(oldDigest): ""},
		"$set":   bson.M{sessionField(newDigest): sessionDocument{IssuedAt: issuedAt}},
	}

	result, err := store.collection.UpdateOne(context, filter, update)
	if err != nil {
		return fmt.Errorf("mongo_account_store_rotate_session_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (store *MongoAccountStore) RemoveSession(context context.Context, accountID, digest string) error {
	if _, err := store.collection.UpdateByID(context, accountID, bson.M{"$unset": bson.M{sessionField(digest): ""}}); err != nil {
		return fmt.Errorf("mongo_account_store_remove_session_failed: %w", err)
	}
	return nil
}

func (store *MongoAccountStore) ClearSessions(context context.Context, accountID string) error {
	if _, err := store.collection.UpdateByID(context, accountID, bson.M{"$set": bson.M{"sessions": bson.M{}}}); err != nil {
		return fmt.Errorf("mongo_account_store_clear_sessions_failed: %w", err)
	}
	return nil
}

func (store *MongoAccountStore) CountSessions(context context.Context, accountID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": accountID}}},
		{{Key: "$project", Value: bson.M{
			"count": bson.M{"$size": bson.M{"$objectToArray": bson.M{"$ifNull": bson.A{"$sessions", bson.M{}}}}},
		}}},
	}

	cursor, err := store.collection.Aggregate(context, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongo_account_store_count_sessions_failed: %w", err)
	}

	var rows []struct {
		Count int `bson:"count"`
	}
	if err := cursor.All(context, &rows); err != nil {
		return 0, fmt.Errorf("mongo_account_store_count_sessions_decode_failed: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Count, nil
}

// PruneSessions filters stale entries out of every session map with an
// aggregation-pipeline update.
func (store *MongoAccountStore) PruneSessions(context context.Context, cutoff time.Time) error {
	fresh := bson.M{
		"$arrayToObject": bson.M{
			"$filter": bson.M{
				"input": bson.M{"$objectToArray": bson.M{"$ifNull": bson.A{"$sessions", bson.M{}}}},
				"cond":  bson.M{"$gte": bson.A{"$$this.v.issuedAt", cutoff}},
			},
		},
	}
	pipeline := mongo.Pipeline{{{Key: "$set", Value: bson.M{"sessions": fresh}}}}

	if _, err := store.collection.UpdateMany(context, bson.M{}, pipeline); err != nil {
		return fmt.Errorf("mongo_account_store_prune_sessions_failed: %w", err)
	}
	return nil
}

// # Administration

// SetBlocked writes blockedAt and, when blocking, empties sessions in the same update.
func (store *MongoAccountStore) SetBlocked(context context.Context, accountID string, at *time.Time) error {
	now := time.Now().UTC()

	update := bson.M{
		"$unset": bson.M{"blockedAt": ""},
		"$set":   bson.M{"updatedAt": now},
	}
	if at != nil {
		update = bson.M{"$set": bson.M{
			"blockedAt": *at,
			"sessions":  bson.M{},
			"updatedAt": now,
		}}
	}

	result, err := store.collection.UpdateByID(context, accountID, update)
	if err != nil {
		return fmt.Errorf("mongo_account_store_set_blocked_failed: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (store *MongoAccountStore) CountByRole(context context.Context) (map[sec.Role]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$role", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := store.collection.Aggregate(context, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo_account_store_count_by_role_failed: %w", err)
	}

	var rows []struct {
		Role  sec.Role `bson:"_id"`
		Count int      `bson:"count"`
	}
	if err := cursor.All(context, &rows); err != nil {
		return nil, fmt.Errorf("mongo_account_store_count_by_role_decode_failed: %w", err)
	}

	counts := make(map[sec.Role]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// # Mapping

func sessionField(digest string) string {
	return "sessions." + digest
}

func translateMongoWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		message := err.Error()
		switch {
		case strings.Contains(message, mongoNationalIDIndex):
			return &DuplicateKeyError{Field: FieldNationalIDNumber}
		case strings.Contains(message, mongoExternalIDIndex):
			return &DuplicateKeyError{Field: FieldExternalID}
		case strings.Contains(message, mongoEmailIndex):
			return &DuplicateKeyError{Field: FieldEmail}
		}
	}
	return fmt.Errorf("mongo_account_store_%s_failed: %w", op, err)
}

func fromAccount(entity *Account) accountDocument {
	document := accountDocument{
		ID:               entity.ID,
		Email:            entity.Email,
		PasswordHash:     entity.PasswordHash,
		Name:             entity.Name,
		NationalIDNumber: entity.NationalIDNumber,
		Phone:            entity.Phone,
		Role:             entity.Role,
		Avatar:           entity.Avatar,
		ExternalID:       entity.ExternalID,
		Provider:         entity.Provider,
		EmailVerified:    entity.EmailVerified,
		BlockedAt:        entity.BlockedAt,
		CreatedAt:        entity.CreatedAt,
		UpdatedAt:        entity.UpdatedAt,
	}
	if entity.VerifyToken != nil {
		document.VerifyToken = &oneTimeDocument{Digest: entity.VerifyToken.Digest, ExpiresAt: entity.VerifyToken.ExpiresAt}
	}
	if entity.ResetToken != nil {
		document.ResetToken = &oneTimeDocument{Digest: entity.ResetToken.Digest, ExpiresAt: entity.ResetToken.ExpiresAt}
	}
	return document
}

func (document *accountDocument) toAccount() *Account {
	entity := &Account{
		ID:               document.ID,
		Email:            document.Email,
		PasswordHash:     document.PasswordHash,
		Name:             document.Name,
		NationalIDNumber: document.NationalIDNumber,
		Phone:            document.Phone,
		Role:             document.Role,
		Avatar:           document.Avatar,
		ExternalID:       document.ExternalID,
		Provider:         document.Provider,
		EmailVerified:    document.EmailVerified,
		BlockedAt:        document.BlockedAt,
		CreatedAt:        document.CreatedAt,
		UpdatedAt:        document.UpdatedAt,
	}
	if document.VerifyToken != nil {
		entity.VerifyToken = &OneTimeToken{Digest: document.VerifyToken.Digest, ExpiresAt: document.VerifyToken.ExpiresAt}
	}
	if document.ResetToken != nil {
		entity.ResetToken = &OneTimeToken{Digest: document.ResetToken.Digest, ExpiresAt: document.ResetToken.ExpiresAt}
	}
	return entity
}
