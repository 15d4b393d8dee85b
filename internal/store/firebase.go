package store

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// Firebase — адаптер Firebase Realtime Database.
type Firebase struct {
	client *db.Client
}

// NewFirebase подключается к Realtime Database по URL и JSON сервисного аккаунта.
// Поддерживаются и firebaseio.com, и региональные *.firebasedatabase.app.
func NewFirebase(ctx context.Context, databaseURL string, credentialsJSON []byte) (*Firebase, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("firebase: credentials not found")
	}
	return newFirebase(ctx, databaseURL, option.WithCredentialsJSON(credentialsJSON))
}

func newFirebase(ctx context.Context, databaseURL string, opts ...option.ClientOption) (*Firebase, error) {
	if databaseURL == "" {
		return nil, errors.New("firebase: database url is empty")
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: database client: %w", err)
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) ref(path string) (*db.Ref, error) {
	if _, err := split(path); err != nil {
		return nil, err
	}
	return f.client.NewRef(path), nil
}

func (f *Firebase) Get(ctx context.Context, path string, v interface{}) error {
	ref, err := f.ref(path)
	if err != nil {
		return err
	}
	if err := ref.Get(ctx, v); err != nil {
		return unavailable("get", path, err)
	}
	return nil
}

func (f *Firebase) Set(ctx context.Context, path string, v interface{}) error {
	ref, err := f.ref(path)
	if err != nil {
		return err
	}
	if err := ref.Set(ctx, v); err != nil {
		return unavailable("set", path, err)
	}
	return nil
}

func (f *Firebase) Push(ctx context.Context, path string, v interface{}) (string, error) {
	ref, err := f.ref(path)
	if err != nil {
		return "", err
	}
	child, err := ref.Push(ctx, v)
	if err != nil {
		return "", unavailable("push", path, err)
	}
	return child.Key, nil
}

// Increment использует транзакцию Realtime Database: функция может вызываться повторно при конфликте.
func (f *Firebase) Increment(ctx context.Context, path string, seed SeedFunc) (int64, error) {
	ref, err := f.ref(path)
	if err != nil {
		return 0, err
	}
	var next int64
	var seedErr error
	err = ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var cur *int64
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		var base int64
		switch {
		case cur != nil:
			base = *cur
		case seed != nil:
			if base, seedErr = seed(ctx); seedErr != nil {
				return nil, seedErr
			}
		}
		next = base + 1
		return next, nil
	})
	if seedErr != nil {
		return 0, seedErr
	}
	if err != nil {
		return 0, unavailable("increment", path, err)
	}
	return next, nil
}

func (f *Firebase) Count(ctx context.Context, path string) (int, error) {
	ref, err := f.ref(path)
	if err != nil {
		return 0, err
	}
	var keys map[string]interface{}
	if err := ref.GetShallow(ctx, &keys); err != nil {
		return 0, unavailable("count", path, err)
	}
	return len(keys), nil
}

func (f *Firebase) Close() error { return nil }
