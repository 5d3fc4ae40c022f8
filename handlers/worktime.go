package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"worktime/config"
	"worktime/database"
	"worktime/middleware"
	"worktime/models"
	"worktime/reconcile"
	"worktime/status"
)

type WorktimeHandler struct {
	config *config.Config
	store  *database.WorktimeStore
}

func NewWorktimeHandler(cfg *config.Config, store *database.WorktimeStore) *WorktimeHandler {
	return &WorktimeHandler{
		config: cfg,
		store:  store,
	}
}

func parsePeriodQuery(r *http.Request) (int, time.Month, error) {
	now := time.Now()
	year := now.Year()
	month := now.Month()

	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 2000 || y > 2100 {
			return 0, 0, fmt.Errorf("invalid year %q", yearStr)
		}
		year = y
	}
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, fmt.Errorf("invalid month %q", monthStr)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// MonthView returns the merged, displayable collection for one month: the
// local and remote copies resolved in memory, delete-tagged days hidden.
func (h *WorktimeHandler) MonthView(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	year, month, err := parsePeriodQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	username := user.Username
	if requested := r.URL.Query().Get("username"); requested != "" && requested != username {
		if !user.CanReviewWorktime() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		username = requested
	}

	userID, ok := h.store.ResolveUserID(r.Context(), username)
	if !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	local, err := h.store.ReadLocalEntries(r.Context(), username, year, month)
	if err != nil {
		http.Error(w, "Failed to read entries", http.StatusInternalServerError)
		return
	}
	remote, err := h.store.ReadRemoteEntries(r.Context(), year, month)
	if err != nil {
		http.Error(w, "Failed to read entries", http.StatusInternalServerError)
		return
	}

	merged := reconcile.MergeEntries(local, remote, userID)
	displayable := merged[:0]
	for _, e := range merged {
		tag, _ := status.Parse(e.RawStatus)
		if tag.Displayable() {
			displayable = append(displayable, e)
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"year":     year,
		"month":    int(month),
		"entries":  displayable,
	})
}

type entryForm struct {
	date                 time.Time
	startTime, endTime   *string
	workedMinutes        int
	temporaryStopMinutes int
	timeOffCode          models.TimeOffCode
}

func parseEntryForm(r *http.Request) (entryForm, error) {
	var form entryForm

	date, err := time.Parse("2006-01-02", r.FormValue("date"))
	if err != nil {
		return form, fmt.Errorf("invalid date format")
	}
	form.date = date

	if v := r.FormValue("start_time"); v != "" {
		if _, err := time.Parse("15:04", v); err != nil {
			return form, fmt.Errorf("invalid start time")
		}
		form.startTime = &v
	}
	if v := r.FormValue("end_time"); v != "" {
		if _, err := time.Parse("15:04", v); err != nil {
			return form, fmt.Errorf("invalid end time")
		}
		form.endTime = &v
	}

	if v := r.FormValue("worked_minutes"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 24*60 {
			return form, fmt.Errorf("invalid worked minutes")
		}
		form.workedMinutes = m
	}
	if v := r.FormValue("stop_minutes"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 0 || m > 24*60 {
			return form, fmt.Errorf("invalid stop minutes")
		}
		form.temporaryStopMinutes = m
	}

	code := models.TimeOffCode(r.FormValue("time_off_code"))
	if code != models.TimeOffNone && !code.IsRecognized() {
		return form, fmt.Errorf("invalid time off code")
	}
	form.timeOffCode = code

	return form, nil
}

// RecordEntry writes one day on the employee-owned local side. A first
// record for a day carries USER_INPUT; re-recording an existing day
// carries USER_EDITED with the edit time.
func (h *WorktimeHandler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	form, err := parseEntryForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag := status.Tag{Role: status.RoleUser, Action: status.ActionInput}
	existing, err := h.store.ReadLocalEntries(r.Context(), user.Username, form.date.Year(), form.date.Month())
	if err != nil {
		http.Error(w, "Failed to read entries", http.StatusInternalServerError)
		return
	}
	for _, e := range existing {
		if e.DayKey() == form.date.Format("2006-01-02") {
			tag = status.Tag{Role: status.RoleUser, Action: status.ActionEdited, EditedAt: time.Now().UTC()}
			break
		}
	}

	entry := models.TimeEntry{
		UserID:               user.ID,
		Date:                 form.date,
		Source:               models.SourceLocal,
		StartTime:            form.startTime,
		EndTime:              form.endTime,
		RawWorkedMinutes:     form.workedMinutes,
		TemporaryStopMinutes: form.temporaryStopMinutes,
		TimeOffCode:          form.timeOffCode,
		RawStatus:            tag.String(),
	}

	if err := h.store.UpsertEntry(r.Context(), entry); err != nil {
		http.Error(w, "Failed to record entry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded", "date": entry.DayKey()})
}

// ReviewEntry writes one day on the administrator-owned remote side:
// ADMIN_EDITED by default, ADMIN_FINAL when the reviewer closes the day,
// DELETE when the reviewer strikes it.
func (h *WorktimeHandler) ReviewEntry(w http.ResponseWriter, r *http.Request) {
	reviewer := middleware.GetUserFromContext(r.Context())
	if reviewer == nil || !reviewer.CanReviewWorktime() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	userID, ok := h.store.ResolveUserID(r.Context(), username)
	if !ok {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	form, err := parseEntryForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var tag status.Tag
	switch r.FormValue("verdict") {
	case "final":
		tag = status.Tag{Role: status.RoleAdmin, Action: status.ActionFinal}
	case "delete":
		tag = status.Tag{Role: status.RoleAdmin, Action: status.ActionDelete}
	default:
		tag = status.Tag{Role: status.RoleAdmin, Action: status.ActionEdited, EditedAt: time.Now().UTC()}
	}

	entry := models.TimeEntry{
		UserID:               userID,
		Date:                 form.date,
		Source:               models.SourceRemote,
		StartTime:            form.startTime,
		EndTime:              form.endTime,
		RawWorkedMinutes:     form.workedMinutes,
		TemporaryStopMinutes: form.temporaryStopMinutes,
		TimeOffCode:          form.timeOffCode,
		RawStatus:            tag.String(),
	}

	if err := h.store.UpsertEntry(r.Context(), entry); err != nil {
		http.Error(w, "Failed to record review", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "reviewed", "date": entry.DayKey()})
}

// TimeOffView returns the user's ledger for a year.
func (h *WorktimeHandler) TimeOffView(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	year := time.Now().Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 2000 || y > 2100 {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
		year = y
	}

	ledger, err := h.store.ReadLedger(r.Context(), user.Username, user.ID, year)
	if err != nil {
		http.Error(w, "Failed to read ledger", http.StatusInternalServerError)
		return
	}
	if ledger == nil {
		ledger = &models.TimeOffLedger{UserID: user.ID, Year: year}
	}

	writeJSON(w, http.StatusOK, ledger)
}

// ExportCSV streams the merged displayable entries of one month for all
// users. HR and admin only.
func (h *WorktimeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil || !user.CanExport() {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	year, month, err := parsePeriodQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var users []models.User
	if err := database.GetDB().WithContext(r.Context()).Order("username asc").Find(&users).Error; err != nil {
		http.Error(w, "Failed to read users", http.StatusInternalServerError)
		return
	}

	remote, err := h.store.ReadRemoteEntries(r.Context(), year, month)
	if err != nil {
		http.Error(w, "Failed to read entries", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("worktime_%d_%02d.csv", year, int(month))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	writer.Write([]string{"Employee", "Date", "Start", "End", "Worked minutes", "Stop minutes", "Time off", "Status"})

	for _, u := range users {
		local, err := h.store.ReadLocalEntries(r.Context(), u.Username, year, month)
		if err != nil {
			continue
		}
		merged := reconcile.MergeEntries(local, remote, u.ID)
		for _, e := range merged {
			tag, _ := status.Parse(e.RawStatus)
			if !tag.Displayable() {
				continue
			}
			writer.Write([]string{
				u.DisplayName(),
				e.DayKey(),
				strOrEmpty(e.StartTime),
				strOrEmpty(e.EndTime),
				strconv.Itoa(e.RawWorkedMinutes),
				strconv.Itoa(e.TemporaryStopMinutes),
				string(e.TimeOffCode),
				e.RawStatus,
			})
		}
	}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
