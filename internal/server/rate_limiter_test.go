package server

import (
	"testing"
	"time"
)

// TestTokenBucketBurst verifies that the bucket admits the configured burst
// and then throttles.
func TestTokenBucketBurst(t *testing.T) {
	bucket := newTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !bucket.allow() {
			t.Fatalf("Request %d inside burst was throttled", i+1)
		}
	}
	if bucket.allow() {
		t.Fatal("Request beyond burst was admitted")
	}
}

// TestTokenBucketRefills verifies that tokens come back over time.
func TestTokenBucketRefills(t *testing.T) {
	bucket := newTokenBucket(2, 100*time.Millisecond)

	bucket.allow()
	bucket.allow()
	if bucket.allow() {
		t.Fatal("Exhausted bucket admitted a request")
	}

	time.Sleep(150 * time.Millisecond)

	if !bucket.allow() {
		t.Fatal("Bucket did not refill after the interval")
	}
}

// TestTokenBucketSanitizesInputs verifies that nonsense construction values
// fall back to a usable bucket.
func TestTokenBucketSanitizesInputs(t *testing.T) {
	bucket := newTokenBucket(0, 0)
	if !bucket.allow() {
		t.Fatal("Sanitized bucket rejected its first request")
	}
}
