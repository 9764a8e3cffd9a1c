package apitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"
	"time"

	"expense-wallet/internal/models"

	"github.com/badoux/checkmail"
	"github.com/shopspring/decimal"
)

// backendDate is the layout the backend uses when it renders receipt dates.
const backendDate = "02-01-2006"

var dateLayouts = []string{"2006-01-02", backendDate, time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid JSON."}})
		return
	}

	fieldErrs := make(map[string][]string)
	if u.Email == "" {
		fieldErrs["email"] = []string{"This field may not be blank."}
	} else if err := checkmail.ValidateFormat(u.Email); err != nil {
		fieldErrs["email"] = []string{"Enter a valid email address."}
	}
	if u.Password == "" {
		fieldErrs["password"] = []string{"This field may not be blank."}
	}
	if u.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", u.DateOfBirth); err != nil {
			fieldErrs["date_of_birth"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[strings.ToLower(u.Email)]; exists && u.Email != "" {
		fieldErrs["email"] = append(fieldErrs["email"], "user with this Email Address already exists.")
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	id := s.newID()
	created := models.User{ID: &id, Email: u.Email, FullName: u.FullName, DateOfBirth: u.DateOfBirth}
	s.accounts[strings.ToLower(u.Email)] = &account{user: created, password: u.Password}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email and password are required."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || acct.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}

	if s.loginResponse != nil {
		if token, ok := s.loginResponse["Authorization"].(string); ok {
			s.tokens[token] = *acct.user.ID
		}
		writeJSON(w, http.StatusOK, s.loginResponse)
		return
	}

	token := s.loginToken
	if token == "" {
		token = newToken()
	}
	s.tokens[token] = *acct.user.ID
	writeJSON(w, http.StatusOK, map[string]string{
		"message":       "Login successful!",
		"Authorization": token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.tokens, r.Header.Get("Authorization"))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully!"})
}

func (s *Server) handleProcessReceipt(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No image file or image_url provided."})
		return
	}
	defer file.Close()
	size, _ := io.Copy(io.Discard, file)
	if size == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Uploaded image is empty."})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	merchant := "Corner Cafe"
	category := models.CategoryMeal
	imageURL := "https://storage.invalid/receipts/" + header.Filename
	txDate := now.Format(backendDate)
	rec := models.Receipt{
		ID:              s.newID(),
		UserID:          s.currentUser(r),
		ImageURL:        &imageURL,
		Merchant:        &merchant,
		TotalAmount:     decimal.NewNullDecimal(decimal.RequireFromString("9.75")),
		TransactionDate: &txDate,
		ParsedItems: []models.ParsedItem{
			{Description: models.ValueWrapper{Value: "Coffee"}, TotalPrice: models.ValueWrapper{Value: "3.50"}},
			{Description: models.ValueWrapper{Value: "Sandwich"}, TotalPrice: models.ValueWrapper{Value: "6.25"}},
		},
		Category:   &category,
		UploadedAt: now.Format(backendDate),
	}
	s.receipts[rec.ID] = &rec
	s.assignToBudgets(&rec)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Receipt, 0)
	for _, rec := range s.userReceipts(s.currentUser(r)) {
		out = append(out, *rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid JSON."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.receipts[id]
	if !ok || rec.UserID != s.currentUser(r) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Receipt matches the given query."})
		return
	}

	updated := *rec
	if raw, ok := patch["receipt_category"]; ok {
		var cat string
		if err := json.Unmarshal(raw, &cat); err != nil || !slices.Contains(models.Categories, cat) {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				"receipt_category": {fmt.Sprintf("%s is not a valid choice.", strings.TrimSpace(string(raw)))},
			})
			return
		}
		updated.Category = &cat
	}
	if raw, ok := patch["merchant"]; ok {
		var m string
		if err := json.Unmarshal(raw, &m); err == nil {
			updated.Merchant = &m
		}
	}
	if raw, ok := patch["total_amount"]; ok {
		var amount decimal.NullDecimal
		if err := json.Unmarshal(raw, &amount); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"total_amount": {"A valid number is required."}})
			return
		}
		updated.TotalAmount = amount
	}

	categoryChanged := updated.CategoryName() != rec.CategoryName()
	*rec = updated
	if categoryChanged {
		delete(s.receiptLinks, rec.ID)
		s.assignToBudgets(rec)
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b models.Budget
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {"Invalid JSON."}})
		return
	}

	fieldErrs := make(map[string][]string)
	if _, ok := parseDate(b.StartDate); !ok {
		fieldErrs["start_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	if _, ok := parseDate(b.EndDate); !ok {
		fieldErrs["end_date"] = []string{"Date has wrong format. Use one of these formats instead: YYYY-MM-DD."}
	}
	for _, c := range b.FilterCategories {
		if !slices.Contains(models.Categories, c) {
			fieldErrs["filter_categories"] = append(fieldErrs["filter_categories"], fmt.Sprintf("%q is not a valid choice.", c))
		}
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	b.ID = &id
	b.UserID = s.currentUser(r)
	if b.Name == "" {
		b.Name = "Budget"
	}
	b.CurrentSpending = decimal.Zero
	b.Receipts = nil
	s.budgets[id] = &b
	writeJSON(w, http.StatusCreated, s.budgetView(&b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := s.currentUser(r)
	ids := make([]int64, 0)
	for id, b := range s.budgets {
		if b.UserID == uid {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]models.Budget, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.budgetView(s.budgets[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBudget(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Budget matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, s.budgetView(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBudget(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Budget matches the given query."})
		return
	}
	delete(s.budgets, *b.ID)
	for rid, links := range s.receiptLinks {
		s.receiptLinks[rid] = slices.DeleteFunc(links, func(id int64) bool { return id == *b.ID })
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBudget(r)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Budget matches the given query."})
		return
	}
	writeJSON(w, http.StatusOK, s.report(b))
}

func (s *Server) handleReportXlsx(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	b, ok := s.lookupBudget(r)
	var rep models.BudgetReport
	if ok {
		rep = s.report(b)
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No Budget matches the given query."})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budget_report_%d.xlsx"`, *rep.Budget.ID))
	w.WriteHeader(http.StatusOK)
	// The stub writes the sheet contents as tab separated text.
	fmt.Fprintln(w, "Budget Name\tLimit Amount\tTotal Spent\tStart Date\tEnd Date")
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", rep.Budget.Name, rep.Budget.LimitAmount.StringFixed(2),
		rep.Budget.CurrentSpending.StringFixed(2), rep.Budget.StartDate, rep.Budget.EndDate)
	fmt.Fprintln(w, "Category\tTotal Spent\tItem Count")
	cats := make([]string, 0, len(rep.CategorySpending))
	for c := range rep.CategorySpending {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(w, "%s\t%s\t%d\n", c, rep.CategorySpending[c].StringFixed(2), rep.CategoryItems[c])
	}
}

// lookupBudget must be called with s.mu held.
func (s *Server) lookupBudget(r *http.Request) (*models.Budget, bool) {
	id, err := pathID(r)
	if err != nil {
		return nil, false
	}
	b, ok := s.budgets[id]
	if !ok || b.UserID != s.currentUser(r) {
		return nil, false
	}
	return b, true
}

// userReceipts must be called with s.mu held. Newest first.
func (s *Server) userReceipts(uid int64) []*models.Receipt {
	var out []*models.Receipt
	for _, rec := range s.receipts {
		if rec.UserID == uid {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// linkedReceipts must be called with s.mu held.
func (s *Server) linkedReceipts(budgetID int64) []*models.Receipt {
	var out []*models.Receipt
	for rid, links := range s.receiptLinks {
		if slices.Contains(links, budgetID) {
			out = append(out, s.receipts[rid])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// assignToBudgets links a receipt to every budget of its owner whose date
// range covers it and whose filter admits its category. Must hold s.mu.
func (s *Server) assignToBudgets(rec *models.Receipt) {
	when := rec.UploadedAt
	if rec.TransactionDate != nil && *rec.TransactionDate != "" {
		when = *rec.TransactionDate
	}
	at, ok := parseDate(when)
	if !ok {
		return
	}
	for id, b := range s.budgets {
		if b.UserID != rec.UserID {
			continue
		}
		start, okStart := parseDate(b.StartDate)
		end, okEnd := parseDate(b.EndDate)
		if !okStart || !okEnd || at.Before(start) || at.After(end) {
			continue
		}
		if len(b.FilterCategories) > 0 && !slices.Contains(b.FilterCategories, rec.CategoryName()) {
			continue
		}
		s.receiptLinks[rec.ID] = append(s.receiptLinks[rec.ID], id)
	}
}

// budgetView fills the derived fields of a budget. Must hold s.mu.
func (s *Server) budgetView(b *models.Budget) models.Budget {
	out := *b
	linked := s.linkedReceipts(*b.ID)
	counted := linked
	if len(b.FilterCategories) > 0 {
		counted = slices.DeleteFunc(slices.Clone(linked), func(r *models.Receipt) bool {
			return !slices.Contains(b.FilterCategories, r.CategoryName())
		})
	}
	out.CurrentSpending = sumAmounts(counted)
	out.Receipts = make([]models.Receipt, 0, len(linked))
	for _, r := range linked {
		out.Receipts = append(out.Receipts, *r)
	}
	if out.FilterCategories == nil {
		out.FilterCategories = []string{}
	}
	return out
}

// report must be called with s.mu held.
func (s *Server) report(b *models.Budget) models.BudgetReport {
	linked := s.linkedReceipts(*b.ID)
	rep := models.BudgetReport{
		Budget:           s.budgetView(b),
		TotalSpent:       sumAmounts(linked),
		CategorySpending: make(map[string]decimal.Decimal),
		CategoryItems:    make(map[string]int),
	}
	for _, r := range linked {
		cat := r.CategoryName()
		amount := decimal.Zero
		if r.TotalAmount.Valid {
			amount = r.TotalAmount.Decimal
		}
		rep.CategorySpending[cat] = rep.CategorySpending[cat].Add(amount)
		items := len(r.ParsedItems)
		if items == 0 {
			items = 1
		}
		rep.TotalItems += items
		rep.CategoryItems[cat] += items
	}
	return rep
}
