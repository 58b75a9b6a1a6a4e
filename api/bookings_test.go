package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skyvia/flightcore/config"
	"github.com/skyvia/flightcore/internal/domain"
	"github.com/skyvia/flightcore/internal/reservation"
)

type MockReservations struct {
	mock.Mock
}

func (m *MockReservations) Reserve(ctx context.Context, in reservation.Input) (*domain.Booking, []reservation.Effect, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Booking), args.Get(1).([]reservation.Effect), args.Error(2)
}

func (m *MockReservations) Lookup(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockReservations) History(ctx context.Context, memberID string) ([]reservation.HistoryEntry, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reservation.HistoryEntry), args.Error(1)
}

type stubDispatcher struct {
	dispatched []reservation.Effect
	ctxErr     error
}

func (d *stubDispatcher) Dispatch(ctx context.Context, effects []reservation.Effect) {
	d.ctxErr = ctx.Err()
	d.dispatched = append(d.dispatched, effects...)
}

func newBookingTestRouter(reservations *MockReservations, dispatcher *stubDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	return NewRouter(config.HTTPConfig{}, NewFlightHandler(&MockFlightUseCase{}, &MockSearcher{}), NewBookingHandler(reservations, dispatcher), zap.NewNop())
}

func TestBookingHandler_Create(t *testing.T) {
	mockReservations := &MockReservations{}
	dispatcher := &stubDispatcher{}
	router := newBookingTestRouter(mockReservations, dispatcher)

	booking := &domain.Booking{ID: 77, Reference: "AB12CD", Status: domain.BookingStatusConfirmed}
	effects := []reservation.Effect{{Kind: reservation.EffectNotifyConfirmation, Key: "AB12CD"}}

	mockReservations.On("Reserve", mock.Anything, mock.MatchedBy(func(in reservation.Input) bool {
		return in.Selector.IsDirect() && in.Selector.SegmentIDs()[0] == 10 && len(in.Passengers) == 1
	})).Return(booking, effects, nil).Once()

	body := `{
		"flight_id": "10",
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "AB12CD")
	assert.Equal(t, effects, dispatcher.dispatched)

	mockReservations.AssertExpectations(t)
}

func TestBookingHandler_Create_LegacyConnectionID(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	booking := &domain.Booking{ID: 78, Reference: "CD34EF"}
	mockReservations.On("Reserve", mock.Anything, mock.MatchedBy(func(in reservation.Input) bool {
		ids := in.Selector.SegmentIDs()
		return len(ids) == 2 && ids[0] == 10 && ids[1] == 11
	})).Return(booking, []reservation.Effect{}, nil).Once()

	body := `{
		"flight_id": "conn_10_11",
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockReservations.AssertExpectations(t)
}

func TestBookingHandler_Create_SegmentList(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	booking := &domain.Booking{ID: 79, Reference: "EF56GH"}
	mockReservations.On("Reserve", mock.Anything, mock.MatchedBy(func(in reservation.Input) bool {
		ids := in.Selector.SegmentIDs()
		return len(ids) == 2 && ids[0] == 20 && ids[1] == 21
	})).Return(booking, []reservation.Effect{}, nil).Once()

	body := `{
		"flight_segments": [20, 21],
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockReservations.AssertExpectations(t)
}

func TestBookingHandler_Create_BadRequest(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	testCases := []struct {
		name string
		body string
	}{
		{name: "missing email", body: `{"flight_id": "10", "passengers": [{"first_name": "Ada", "last_name": "L"}]}`},
		{name: "bad email", body: `{"flight_id": "10", "passengers": [{"first_name": "Ada", "last_name": "L"}], "contact_email": "nope"}`},
		{name: "no passengers", body: `{"flight_id": "10", "passengers": [], "contact_email": "ada@example.com"}`},
		{name: "passenger without last name", body: `{"flight_id": "10", "passengers": [{"first_name": "Ada"}], "contact_email": "ada@example.com"}`},
		{name: "malformed flight id", body: `{"flight_id": "conn_x_y", "passengers": [{"first_name": "Ada", "last_name": "L"}], "contact_email": "ada@example.com"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	mockReservations.AssertNotCalled(t, "Reserve")
}

func TestBookingHandler_Create_Conflict(t *testing.T) {
	mockReservations := &MockReservations{}
	dispatcher := &stubDispatcher{}
	router := newBookingTestRouter(mockReservations, dispatcher)

	mockReservations.On("Reserve", mock.Anything, mock.Anything).Return(nil, nil, domain.ErrConcurrencyConflict).Once()

	body := `{
		"flight_id": "10",
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, dispatcher.dispatched)
}

func TestBookingHandler_Create_LoyaltyDown(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	mockReservations.On("Reserve", mock.Anything, mock.Anything).Return(nil, nil, domain.ErrDependencyUnavailable).Once()

	body := `{
		"flight_id": "10",
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com",
		"miles_member_id": "FF-1234",
		"use_miles": true
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBookingHandler_Get(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	stored := &domain.Booking{
		ID:        77,
		Reference: "AB12CD",
		Status:    domain.BookingStatusConfirmed,
		Passengers: []domain.Passenger{
			{FirstName: "Ada", LastName: "Lovelace"},
		},
	}
	mockReservations.On("Lookup", mock.Anything, "AB12CD").Return(stored, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/AB12CD", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var booking domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
	assert.Equal(t, "AB12CD", booking.Reference)
	require.Len(t, booking.Passengers, 1)

	mockReservations.AssertExpectations(t)
}

func TestBookingHandler_Get_NotFound(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	mockReservations.On("Lookup", mock.Anything, "ZZZZZZ").Return(nil, domain.ErrNotFound).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/ZZZZZZ", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandler_Create_DispatchOutlivesRequestContext(t *testing.T) {
	mockReservations := &MockReservations{}
	dispatcher := &stubDispatcher{}
	router := newBookingTestRouter(mockReservations, dispatcher)

	booking := &domain.Booking{ID: 80, Reference: "GH78IJ", Status: domain.BookingStatusConfirmed}
	effects := []reservation.Effect{{Kind: reservation.EffectNotifyConfirmation, Key: "GH78IJ"}}

	// The client hangs up while the reservation commits.
	ctx, cancel := context.WithCancel(context.Background())
	mockReservations.On("Reserve", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(booking, effects, nil).Once()

	body := `{
		"flight_id": "10",
		"passengers": [{"first_name": "Ada", "last_name": "Lovelace"}],
		"contact_email": "ada@example.com"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, dispatcher.dispatched, 1)
	assert.NoError(t, dispatcher.ctxErr)
}

func TestBookingHandler_MemberHistory(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	entries := []reservation.HistoryEntry{
		{
			Booking:     domain.Booking{ID: 77, Reference: "AB12CD", MemberID: "FF123", PassengerCount: 2},
			Flights:     []domain.Flight{{ID: 10, FlightNumber: "TK100", DurationMinutes: 240}},
			MilesEarned: 480,
		},
	}
	mockReservations.On("History", mock.Anything, "FF123").Return(entries, nil).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/member/FF123", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		MemberID string                     `json:"member_id"`
		Bookings []reservation.HistoryEntry `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FF123", resp.MemberID)
	require.Len(t, resp.Bookings, 1)
	assert.Equal(t, "AB12CD", resp.Bookings[0].Booking.Reference)
	assert.Equal(t, int64(480), resp.Bookings[0].MilesEarned)

	mockReservations.AssertExpectations(t)
}

func TestBookingHandler_MemberHistory_Error(t *testing.T) {
	mockReservations := &MockReservations{}
	router := newBookingTestRouter(mockReservations, &stubDispatcher{})

	mockReservations.On("History", mock.Anything, "FF999").Return(nil, domain.ErrDependencyUnavailable).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/member/FF999", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
