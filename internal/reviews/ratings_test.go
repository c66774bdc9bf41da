package reviews

import (
	"context"
	"testing"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		in   []int
		want float64
		ok   bool
	}{
		{[]int{4, 5, 3}, 4.0, true},
		{[]int{5, 4, 4}, 4.33, true},
		{[]int{1}, 1, true},
		{[]int{5, 4}, 4.5, true},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := Average(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Average(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

type ratingStore struct {
	product map[string][]int
	partner map[string][]int
	written map[string]float64
}

func (s *ratingStore) ProductRatings(_ context.Context, id string) ([]int, error) {
	return s.product[id], nil
}

func (s *ratingStore) PartnerRatings(_ context.Context, id string) ([]int, error) {
	return s.partner[id], nil
}

func (s *ratingStore) SetProductRating(_ context.Context, id string, avg float64) error {
	s.written["product:"+id] = avg
	return nil
}

func (s *ratingStore) SetPartnerRating(_ context.Context, id string, avg float64) error {
	s.written["partner:"+id] = avg
	return nil
}

func TestRecomputer(t *testing.T) {
	store := &ratingStore{
		product: map[string][]int{"prod": {4, 5, 3}},
		partner: map[string][]int{"p1": {4, 5, 3, 2}},
		written: map[string]float64{},
	}
	r := &Recomputer{Store: store}
	ctx := context.Background()

	if err := r.Product(ctx, "prod"); err != nil {
		t.Fatal(err)
	}
	if err := r.Partner(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := r.Product(ctx, "empty"); err != nil {
		t.Fatal(err)
	}

	if store.written["product:prod"] != 4.0 {
		t.Errorf("product avg = %v", store.written["product:prod"])
	}
	if store.written["partner:p1"] != 3.5 {
		t.Errorf("partner avg = %v", store.written["partner:p1"])
	}
	if _, ok := store.written["product:empty"]; ok {
		t.Error("empty rating set must not write")
	}
}
