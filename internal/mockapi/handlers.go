package mockapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type accountInput struct {
	Name     *string  `json:"name"`
	Broker   *string  `json:"broker"`
	Currency *string  `json:"currency"`
	Balance  *float64 `json:"balance"`
}

func (in accountInput) apply(a *Account) {
	if in.Name != nil {
		a.Name = strings.TrimSpace(*in.Name)
	}
	if in.Broker != nil {
		a.Broker = strings.TrimSpace(*in.Broker)
	}
	if in.Currency != nil {
		a.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Balance != nil {
		a.Balance = *in.Balance
	}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Accounts())
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.Account(chi.URLParam(r, "accountID"))
	if err != nil {
		writeStoreError(w, err, "account")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in accountInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account payload: "+err.Error())
		return
	}
	var a Account
	in.apply(&a)
	if a.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	writeJSON(w, http.StatusCreated, s.store.CreateAccount(a))
}

func (s *Server) handleReplaceAccount(w http.ResponseWriter, r *http.Request) {
	var in accountInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account payload: "+err.Error())
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	a, err := s.store.UpdateAccount(chi.URLParam(r, "accountID"), func(a *Account) {
		created := a.CreatedAt
		*a = Account{CreatedAt: created}
		in.apply(a)
	})
	if err != nil {
		writeStoreError(w, err, "account")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handlePatchAccount(w http.ResponseWriter, r *http.Request) {
	var in accountInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid account payload: "+err.Error())
		return
	}
	a, err := s.store.UpdateAccount(chi.URLParam(r, "accountID"), in.apply)
	if err != nil {
		writeStoreError(w, err, "account")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAccount(chi.URLParam(r, "accountID")); err != nil {
		writeStoreError(w, err, "account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reservationInput struct {
	AccountID string  `json:"account_id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price"`
}

func (in reservationInput) validate() string {
	switch {
	case strings.TrimSpace(in.AccountID) == "":
		return "account_id is required"
	case strings.TrimSpace(in.Symbol) == "":
		return "symbol is required"
	case in.Side != "buy" && in.Side != "sell":
		return "side must be buy or sell"
	case in.Quantity <= 0:
		return "quantity must be positive"
	}
	return ""
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, s.store.Reservations(q.Get("account_id"), q.Get("status")))
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.Reservation(chi.URLParam(r, "reservationID"))
	if err != nil {
		writeStoreError(w, err, "reservation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var in reservationInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation payload: "+err.Error())
		return
	}
	if msg := in.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	res, err := s.store.CreateReservation(Reservation{
		AccountID: in.AccountID,
		Symbol:    strings.ToUpper(in.Symbol),
		Side:      in.Side,
		Quantity:  in.Quantity,
		Price:     in.Price,
	})
	if err != nil {
		writeStoreError(w, err, "account")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleReplaceReservation(w http.ResponseWriter, r *http.Request) {
	var in reservationInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reservation payload: "+err.Error())
		return
	}
	if msg := in.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := s.store.Account(in.AccountID); err != nil {
		writeStoreError(w, err, "account")
		return
	}
	res, err := s.store.UpdateReservation(chi.URLParam(r, "reservationID"), func(res *Reservation) {
		res.AccountID = in.AccountID
		res.Symbol = strings.ToUpper(in.Symbol)
		res.Side = in.Side
		res.Quantity = in.Quantity
		res.Price = in.Price
	})
	if err != nil {
		writeStoreError(w, err, "reservation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleReservationStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid status payload: "+err.Error())
		return
	}
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if !validStatuses[status] {
		writeError(w, http.StatusBadRequest, "unknown status "+in.Status)
		return
	}
	res, err := s.store.UpdateReservation(chi.URLParam(r, "reservationID"), func(res *Reservation) {
		res.Status = status
	})
	if err != nil {
		writeStoreError(w, err, "reservation")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteReservation(chi.URLParam(r, "reservationID")); err != nil {
		writeStoreError(w, err, "reservation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListEvents filters by repeated or comma separated country values
// and a single importance level.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var countries []string
	for _, v := range q["country"] {
		countries = append(countries, strings.Split(v, ",")...)
	}
	writeJSON(w, http.StatusOK, s.store.Events(countries, q.Get("importance")))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Event(chi.URLParam(r, "eventID"))
	if err != nil {
		writeStoreError(w, err, "event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
