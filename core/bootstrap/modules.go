package bootstrap

import "context"

// Storage is whatever the application seeds at startup, usually its store.
type Storage any

// Seeder fills storage before the bot starts taking updates.
type Seeder interface {
	Seed(ctx context.Context, storage Storage) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc func(ctx context.Context, storage Storage) error

// Seed calls f.
func (f SeederFunc) Seed(ctx context.Context, storage Storage) error { return f(ctx, storage) }
