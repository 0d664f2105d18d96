package search

import (
	"errors"
	"sync"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		ownerID    string
		text       string
		limit      string
		offset     string
		withOffset bool
		want       Query
		wantErr    error
	}{
		{
			name:    "defaults",
			ownerID: "u1",
			text:    "miku",
			want:    Query{Text: "miku", OwnerID: "u1", Limit: 10},
		},
		{
			name:    "trims text",
			ownerID: "u1",
			text:    "  miku  ",
			want:    Query{Text: "miku", OwnerID: "u1", Limit: 10},
		},
		{
			name:    "missing owner",
			text:    "miku",
			wantErr: ErrMissingOwner,
		},
		{
			name:    "missing query",
			ownerID: "u1",
			wantErr: ErrMissingQuery,
		},
		{
			name:    "whitespace only query",
			ownerID: "u1",
			text:    "   ",
			wantErr: ErrMissingQuery,
		},
		{
			name:    "single character query",
			ownerID: "u1",
			text:    "m",
			wantErr: ErrQueryTooShort,
		},
		{
			name:    "explicit limit",
			ownerID: "u1",
			text:    "miku",
			limit:   "25",
			want:    Query{Text: "miku", OwnerID: "u1", Limit: 25},
		},
		{
			name:    "limit clamped to max",
			ownerID: "u1",
			text:    "miku",
			limit:   "1000",
			want:    Query{Text: "miku", OwnerID: "u1", Limit: 50},
		},
		{
			name:    "zero limit rejected",
			ownerID: "u1",
			text:    "miku",
			limit:   "0",
			wantErr: ErrInvalidLimit,
		},
		{
			name:    "negative limit rejected",
			ownerID: "u1",
			text:    "miku",
			limit:   "-1",
			wantErr: ErrInvalidLimit,
		},
		{
			name:    "non-numeric limit rejected",
			ownerID: "u1",
			text:    "miku",
			limit:   "ten",
			wantErr: ErrInvalidLimit,
		},
		{
			name:       "offset parsed in partial mode",
			ownerID:    "u1",
			text:       "miku",
			offset:     "20",
			withOffset: true,
			want:       Query{Text: "miku", OwnerID: "u1", Limit: 10, Offset: 20},
		},
		{
			name:       "negative offset rejected",
			ownerID:    "u1",
			text:       "miku",
			offset:     "-5",
			withOffset: true,
			wantErr:    ErrInvalidOffset,
		},
		{
			name:       "non-numeric offset rejected",
			ownerID:    "u1",
			text:       "miku",
			offset:     "later",
			withOffset: true,
			wantErr:    ErrInvalidOffset,
		},
		{
			name:    "offset ignored in word-wheel mode",
			ownerID: "u1",
			text:    "miku",
			offset:  "garbage",
			want:    Query{Text: "miku", OwnerID: "u1", Limit: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.ownerID, tt.text, tt.limit, tt.offset, tt.withOffset)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Validate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Miku", "miku"},
		{"  GOOD SMILE  ", "good smile"},
		{"Straße", "strasse"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Normalize runs on every request goroutine, so it must not share mutable
// folding state. Run under -race to catch regressions.
func TestNormalizeConcurrent(t *testing.T) {
	inputs := []string{"Miku", "STRASSE", "Straße", "  GOOD SMILE  ", "müller"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				in := inputs[j%len(inputs)]
				if got := Normalize(in); got == "" {
					t.Errorf("Normalize(%q) returned empty string", in)
				}
			}
		}()
	}
	wg.Wait()
}
