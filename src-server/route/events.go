package route

import (
	"net/http"
	"strings"
	"time"

	"planner/src-server/model"
	"planner/src-server/timeline"
	"planner/src-server/utils"
)

func Events(muxer *http.ServeMux, as *utils.AppState) {
	loc := as.Config.GetLocation()

	resolveDate := func(r *http.Request) (string, time.Time, error) {
		date, err := utils.ResolveDate(as.When, r.URL.Query().Get("date"), time.Now(), loc)
		if err != nil {
			return "", time.Time{}, err
		}
		day, err := as.Events.ParseDate(date)
		if err != nil {
			return "", time.Time{}, err
		}
		return date, day, nil
	}

	type DayRespBody struct {
		Date      string            `json:"date"`
		Timeline  timeline.Timeline `json:"timeline"`
		NowOffset *float64          `json:"nowOffset,omitempty"`
	}

	type MonthRespBody struct {
		Month   string              `json:"month"`
		Markers map[string][]string `json:"markers"`
	}

	type MemoReqBody struct {
		Memo string `json:"memo"`
	}

	// list of one day
	muxer.HandleFunc("GET /events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		date, _, err := resolveDate(r)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		events, err := as.Events.LoadForDate(r.Context(), date)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": date, "events": events})
	}))

	// daily timeline
	muxer.HandleFunc("GET /events/day", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		date, day, err := resolveDate(r)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		events, err := as.Events.LoadForDate(r.Context(), date)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		resp := DayRespBody{
			Date:     date,
			Timeline: as.Grid.Layout(events, timeline.Day(day), nil),
		}
		if now := time.Now().In(loc); now.Format(time.DateOnly) == date {
			offset := as.Grid.NowOffset(now)
			resp.NowOffset = &offset
		}
		writeJSON(w, http.StatusOK, resp)
	}))

	// weekly timeline
	muxer.HandleFunc("GET /events/week", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		_, anchor, err := resolveDate(r)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		weekStart := as.Config.GetWeekStart()
		switch strings.ToLower(r.URL.Query().Get("weekStart")) {
		case "":
		case "sunday":
			weekStart = time.Sunday
		case "monday":
			weekStart = time.Monday
		default:
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "weekStart must be sunday or monday")
			return
		}

		columns := timeline.Week(anchor, weekStart)
		byDate, err := as.Events.LoadRange(r.Context(),
			columns[0].Format(time.DateOnly),
			columns[len(columns)-1].Format(time.DateOnly),
		)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		events := make([]model.EventItem, 0)
		for _, column := range columns {
			events = append(events, byDate[column.Format(time.DateOnly)]...)
		}
		writeJSON(w, http.StatusOK, as.Grid.Layout(events, columns, nil))
	}))

	// month markers
	muxer.HandleFunc("GET /events/month", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		month := r.URL.Query().Get("month")
		if month == "" {
			month = time.Now().In(loc).Format("2006-01")
		}
		anchor, err := time.ParseInLocation("2006-01", month, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidDate, "month must be YYYY-MM")
			return
		}
		first, last := timeline.Month(anchor)
		byDate, err := as.Events.LoadRange(r.Context(), first.Format(time.DateOnly), last.Format(time.DateOnly))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MonthRespBody{Month: month, Markers: timeline.MonthMarkers(byDate)})
	}))

	muxer.HandleFunc("POST /events", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		event := new(model.EventItem)
		if !decodeBody(w, r, event) {
			return
		}
		event.ID = ""
		if err := as.Events.Save(r.Context(), event); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, event)
	}))

	muxer.HandleFunc("GET /events/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		event, err := as.Events.Get(r.Context(), r.PathValue("id"))
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}))

	muxer.HandleFunc("PUT /events/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		event := new(model.EventItem)
		if !decodeBody(w, r, event) {
			return
		}
		event.ID = r.PathValue("id")
		if err := as.Events.Update(r.Context(), event); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}))

	muxer.HandleFunc("PATCH /events/{id}/memo", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		var reqBody MemoReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		event, err := as.Events.UpdateMemo(r.Context(), r.PathValue("id"), reqBody.Memo)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, event)
	}))

	muxer.HandleFunc("DELETE /events/{id}", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := as.Events.Delete(r.Context(), id); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	}))

	// the catalog is static, no auth needed
	muxer.HandleFunc("GET /categories", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, model.DefaultCatalog())
	})
}
