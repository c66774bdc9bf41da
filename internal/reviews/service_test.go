package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lookali/marketplace-api/internal/auth"
	"github.com/lookali/marketplace-api/internal/events"
)

type sink struct{ values [][]byte }

func (s *sink) Publish(_, value []byte, _ ...kafkago.Header) { s.values = append(s.values, value) }

func TestServicePublishesChanges(t *testing.T) {
	store := newMemStore()
	store.paid["buyer"] = true
	out := &sink{}
	svc := &Service{
		Store:  store,
		Gate:   &Gate{Store: store},
		Events: &events.Emitter{Sink: out, Producer: "test"},
	}
	buyer := auth.Principal{UserID: "buyer"}

	r, err := svc.Create(context.Background(), buyer, input())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Update(context.Background(), buyer, r.ID, UpdateInput{Rating: 3}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := svc.Delete(context.Background(), buyer, r.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(out.values) != 3 {
		t.Fatalf("published %d events, want 3", len(out.values))
	}
	var env events.Envelope
	if err := json.Unmarshal(out.values[2], &env); err != nil {
		t.Fatal(err)
	}
	var p ChangedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if env.EventType != events.EventReviewChanged || p.Action != "deleted" || p.ProductID != productID {
		t.Errorf("event = %+v payload = %+v", env, p)
	}
}

func TestServiceAuthorOnly(t *testing.T) {
	store := newMemStore()
	store.reviews["r1"] = &Review{ID: "r1", UserID: "buyer", PartnerID: partnerID, Rating: 4}
	svc := &Service{Store: store, Gate: &Gate{Store: store}}
	other := auth.Principal{UserID: "other"}

	_, err := svc.Update(context.Background(), other, "r1", UpdateInput{Rating: 1})
	wantStatus(t, err, http.StatusForbidden)
	wantStatus(t, svc.Delete(context.Background(), other, "r1"), http.StatusForbidden)
	wantStatus(t, svc.Delete(context.Background(), other, "missing"), http.StatusNotFound)
}

func TestServiceValidatesRating(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store, Gate: &Gate{Store: store}}
	in := input()
	in.Rating = 6
	_, err := svc.Create(context.Background(), auth.Principal{UserID: "buyer"}, in)
	wantStatus(t, err, http.StatusBadRequest)
}

func TestServiceRejectsForeignOrder(t *testing.T) {
	store := newMemStore()
	store.orderBuyer = "someone-else"
	store.paid["buyer"] = true
	svc := &Service{Store: store, Gate: &Gate{Store: store}}
	_, err := svc.Create(context.Background(), auth.Principal{UserID: "buyer"}, input())
	wantStatus(t, err, http.StatusBadRequest)
}

func TestServiceRejectsProductOfAnotherPartner(t *testing.T) {
	const foreign = "9f9f9f9f-0000-4000-8000-0000000000ff"
	tests := []struct {
		name       string
		products   map[string]string
		wantStatus int
	}{
		{"product of another store", map[string]string{foreign: "other-partner"}, http.StatusBadRequest},
		{"unknown product", map[string]string{}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.paid["buyer"] = true
			store.products = tt.products
			svc := &Service{Store: store, Gate: &Gate{Store: store}}

			in := input()
			in.ProductID = foreign
			_, err := svc.Create(context.Background(), auth.Principal{UserID: "buyer"}, in)
			wantStatus(t, err, tt.wantStatus)
			if len(store.reviews) != 0 {
				t.Errorf("stored %d reviews, want 0", len(store.reviews))
			}
		})
	}
}
