package route

import (
	"net/http"

	"planner/src-server/model"
	"planner/src-server/utils"
)

func Profile(muxer *http.ServeMux, as *utils.AppState) {
	type DisplayNameReqBody struct {
		DisplayName string `json:"displayName"`
	}

	type EmailReqBody struct {
		Email string `json:"email"`
	}

	type SurveyReqBody struct {
		PreparationTime *struct {
			Hours   int `json:"hours"`
			Minutes int `json:"minutes"`
		} `json:"preparationTime"`
		PreparationStyle model.PreparationStyle `json:"preparationStyle"`
		Completed        bool                   `json:"completed"`
	}

	// wraps AuthMiddleware and hands the uid over
	withUID := func(next func(w http.ResponseWriter, r *http.Request, uid string)) func(http.ResponseWriter, *http.Request) {
		return AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
			identity, ok := identityFrom(r)
			if !ok {
				writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "can't get identity from middleware")
				return
			}
			next(w, r, identity.UID)
		})
	}

	// first call after sign-up creates the document
	muxer.HandleFunc("GET /profile", AuthMiddleware(as, func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFrom(r)
		if !ok {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "can't get identity from middleware")
			return
		}
		profile, err := as.Accounts.Ensure(r.Context(), identity.UID, identity.Email)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}))

	muxer.HandleFunc("PUT /profile/display-name", withUID(func(w http.ResponseWriter, r *http.Request, uid string) {
		var reqBody DisplayNameReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		profile, err := as.Accounts.UpdateDisplayName(r.Context(), uid, reqBody.DisplayName)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}))

	muxer.HandleFunc("PUT /profile/email", withUID(func(w http.ResponseWriter, r *http.Request, uid string) {
		var reqBody EmailReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		profile, err := as.Accounts.UpdateEmail(r.Context(), uid, reqBody.Email)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}))

	// each survey screen sends its own part; the last one sets completed
	muxer.HandleFunc("PUT /profile/survey", withUID(func(w http.ResponseWriter, r *http.Request, uid string) {
		var reqBody SurveyReqBody
		if !decodeBody(w, r, &reqBody) {
			return
		}
		profile, err := as.Accounts.Get(r.Context(), uid)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		if t := reqBody.PreparationTime; t != nil {
			if profile, err = as.Accounts.RecordPreparationTime(r.Context(), uid, t.Hours, t.Minutes); err != nil {
				writeDomainError(w, r, err)
				return
			}
		}
		if reqBody.PreparationStyle != "" {
			if profile, err = as.Accounts.RecordPreparationStyle(r.Context(), uid, reqBody.PreparationStyle); err != nil {
				writeDomainError(w, r, err)
				return
			}
		}
		if reqBody.Completed {
			if profile, err = as.Accounts.CompleteSurvey(r.Context(), uid); err != nil {
				writeDomainError(w, r, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, profile)
	}))

	muxer.HandleFunc("DELETE /profile", withUID(func(w http.ResponseWriter, r *http.Request, uid string) {
		if err := as.Accounts.DeleteAccount(r.Context(), uid); err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"uid": uid})
	}))
}
