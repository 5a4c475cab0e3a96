package kvs_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/kvs"
	"github.com/hupe1980/kvs/blobstore"
	"github.com/hupe1980/kvs/defaults"
	"github.com/hupe1980/kvs/value"
)

// Example demonstrates setting, flushing and reopening a store.
func Example() {
	dir, err := os.MkdirTemp("", "kvs-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	cfg := kvs.DefaultConfig()
	cfg.Dir = dir

	s, err := kvs.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := s.Set("test_number", value.F64(432.1)); err != nil {
		log.Fatal(err)
	}
	if err := s.Flush(ctx); err != nil {
		log.Fatal(err)
	}

	s, err = kvs.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	v, _ := s.Get("test_number")
	fmt.Println(v)
	// Output: F64(432.1)
}

// Example_defaults demonstrates override and default resolution.
func Example_defaults() {
	ctx := context.Background()
	p := defaults.NewMapProvider(value.Map{"volume": value.I32(5)})
	s, err := kvs.Open(ctx, kvs.DefaultConfig(), kvs.WithDefaults(p), kvs.WithBlobStore(blobstore.NewMemoryStore()))
	if err != nil {
		log.Fatal(err)
	}

	_ = s.Set("volume", value.I32(8))
	isDefault, _ := s.HasDefaultValue("volume")
	fmt.Println("overridden, default:", isDefault)

	_ = s.ResetKey("volume")
	v, _ := s.Get("volume")
	isDefault, _ = s.HasDefaultValue("volume")
	fmt.Println("reset:", v, isDefault)

	_, err = s.GetDefaultValue("brightness")
	fmt.Println(errors.Is(err, kvs.ErrKeyNotFound))
	// Output:
	// overridden, default: false
	// reset: I32(5) true
	// true
}
