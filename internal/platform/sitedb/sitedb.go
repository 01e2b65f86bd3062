// Package sitedb is the database collaborator used when login is enabled.
//
// A Database is either Enabled (backed by MongoDB) or Disabled. Callers ask
// Enabled() instead of comparing against nil.
package sitedb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"lastautoindex/internal/platform/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	KVCollection    = "kv"
	UsersCollection = "users"
)

var (
	ErrDisabled = errors.New("database is disabled")
	ErrNotFound = errors.New("not found")
)

type Database interface {
	Enabled() bool
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	PutUser(ctx context.Context, u User) error
	Close(ctx context.Context) error
}

// Disabled is the Database used when login is off.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }
func (Disabled) Ping(context.Context) error { return ErrDisabled }
func (Disabled) Get(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) Set(context.Context, string, string) error { return ErrDisabled }
func (Disabled) Delete(context.Context, string) error { return ErrDisabled }
func (Disabled) PutUser(context.Context, User) error { return ErrDisabled }
func (Disabled) Close(context.Context) error { return nil }

// Enabled is a MongoDB backed Database.
type Enabled struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// URI builds the connection string for p. Credentials are passed separately.
func URI(p config.Database) string {
	u := url.URL{Scheme: "mongodb", Host: p.Host, Path: "/"}
	return u.String()
}

// Connect builds the client for p. The driver dials lazily, so an unreachable
// server shows up on first use or Ping, not here.
func Connect(ctx context.Context, p config.Database) (*Enabled, error) {
	if p.Host == "" || p.User == "" || p.Pass == "" || p.Name == "" {
		return nil, config.ErrDatabaseVars
	}
	opts := options.Client().
		ApplyURI(URI(p)).
		SetAuth(options.Credential{Username: p.User, Password: p.Pass, AuthSource: p.Name}).
		SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", p.Host, err)
	}
	return &Enabled{Client: client, DB: client.Database(p.Name)}, nil
}

func (e *Enabled) Enabled() bool { return true }

// Ping checks that the primary is reachable and the credentials work.
func (e *Enabled) Ping(ctx context.Context) error {
	return e.Client.Ping(ctx, readpref.Primary())
}

type kvDoc struct {
	Key   string    `bson:"_id"`
	Value string    `bson:"value"`
	Set   time.Time `bson:"set_at"`
}

func (e *Enabled) Get(ctx context.Context, key string) (string, error) {
	var doc kvDoc
	err := e.DB.Collection(KVCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Value, nil
}

func (e *Enabled) Set(ctx context.Context, key, value string) error {
	_, err := e.DB.Collection(KVCollection).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "set_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (e *Enabled) Delete(ctx context.Context, key string) error {
	_, err := e.DB.Collection(KVCollection).DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (e *Enabled) Close(ctx context.Context) error {
	return e.Client.Disconnect(ctx)
}

// User is a login account in the users collection.
type User struct {
	Name         string `bson:"_id"`
	PasswordHash string `bson:"password_hash"`
}

// FindUser looks a user up by name.
func (e *Enabled) FindUser(ctx context.Context, name string) (*User, error) {
	var u User
	err := e.DB.Collection(UsersCollection).FindOne(ctx, bson.M{"_id": name}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// PutUser creates or replaces a user.
func (e *Enabled) PutUser(ctx context.Context, u User) error {
	_, err := e.DB.Collection(UsersCollection).UpdateOne(ctx,
		bson.M{"_id": u.Name},
		bson.M{"$set": bson.M{"password_hash": u.PasswordHash}},
		options.Update().SetUpsert(true),
	)
	return err
}
