package posting

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taxdesk/taxdesk/internal/calendar"
)

// fakeStore mimics the posting database functions in memory.
type fakeStore struct {
	mu         sync.Mutex
	docs       map[uuid.UUID]*Document
	otherFail  map[uuid.UUID]string
	assignErr  map[uuid.UUID]error
	batchErr   error
	batchCalls int
	assigned   []Assignment
	single     SinglePostResult
	singleErr  error
	accounts   []Account
}

func newFakeStore(docs ...Document) *fakeStore {
	s := &fakeStore{
		docs:      make(map[uuid.UUID]*Document),
		otherFail: make(map[uuid.UUID]string),
		assignErr: make(map[uuid.UUID]error),
	}
	for i := range docs {
		doc := docs[i]
		if doc.Status == "" {
			doc.Status = StatusUnposted
		}
		s.docs[doc.ID] = &doc
	}
	return s
}

func (s *fakeStore) sorted() []*Document {
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredOn.Equal(out[j].OccurredOn) {
			return out[i].OccurredOn.Before(out[j].OccurredOn)
		}
		return out[i].Number < out[j].Number
	})
	return out
}

func (s *fakeStore) FetchUnposted(ctx context.Context, businessID uuid.UUID, window calendar.Range) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Document
	for _, d := range s.sorted() {
		if d.BusinessID == businessID && d.Status == StatusUnposted && window.Contains(d.OccurredOn) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeStore) PostSingle(ctx context.Context, documentID uuid.UUID) (SinglePostResult, error) {
	return s.single, s.singleErr
}

func (s *fakeStore) PostBatch(ctx context.Context, businessID uuid.UUID, window calendar.Range, limit int) (BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchCalls++
	if s.batchErr != nil {
		return BatchResult{}, s.batchErr
	}
	var res BatchResult
	seen := 0
	for _, d := range s.sorted() {
		if seen == limit {
			break
		}
		if d.BusinessID != businessID || d.Status != StatusUnposted || d.Reason() != ReasonReadyToPost || !window.Contains(d.OccurredOn) {
			continue
		}
		seen++
		switch {
		case d.AccountID == nil:
			res.Failed++
			res.Failures = append(res.Failures, Failure{DocumentID: d.ID, Code: ErrorMissingAccount, Message: "no ledger account"})
		case s.otherFail[d.ID] != "":
			res.Failed++
			res.Failures = append(res.Failures, Failure{DocumentID: d.ID, Code: ErrorOther, Message: s.otherFail[d.ID]})
		default:
			d.Status = StatusPosted
			res.Posted++
		}
	}
	res.Success = res.Failed == 0
	return res, nil
}

func (s *fakeStore) AssignLedgerAccount(ctx context.Context, documentID, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned = append(s.assigned, Assignment{DocumentID: documentID, AccountID: accountID})
	if err := s.assignErr[documentID]; err != nil {
		return err
	}
	d, ok := s.docs[documentID]
	if !ok {
		return ErrDocumentNotFound
	}
	id := accountID
	d.AccountID = &id
	return nil
}

func (s *fakeStore) ListAccounts(ctx context.Context, businessID uuid.UUID) ([]Account, error) {
	return s.accounts, nil
}

func (s *fakeStore) posted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.docs {
		if d.Status == StatusPosted {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")

var (
	testBusiness = uuid.MustParse("6f0c1d9e-0000-4000-8000-000000000001")
	testAccount  = uuid.MustParse("6f0c1d9e-0000-4000-8000-0000000000aa")
	testPeriod   = calendar.Key{Year: 2025, Month: time.March}
)

func readyDoc(number string, day int, withAccount bool) Document {
	doc := Document{
		ID:         uuid.New(),
		BusinessID: testBusiness,
		Number:     number,
		Kind:       "invoice",
		OccurredOn: time.Date(2025, time.March, day, 10, 0, 0, 0, time.UTC),
	}
	if withAccount {
		id := testAccount
		doc.AccountID = &id
	}
	return doc
}

func blockedDoc(number string, day int, reason Reason) Document {
	doc := readyDoc(number, day, true)
	doc.BlockingReason = &reason
	return doc
}
