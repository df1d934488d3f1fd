package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"classtrade/internal/admin"
	"classtrade/internal/aigen"
	"classtrade/internal/auth"
	"classtrade/internal/roster"
	"classtrade/internal/validate"
)

const maxUploadBytes = 5 << 20

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validate.Struct(in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	a, err := s.admin.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	session, err := s.tokens.AdminSession(a.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"session": session, "admin": a})
}

// Clients and managers.

func (s *Server) handleClientsList(w http.ResponseWriter, r *http.Request) {
	out, err := s.admin.ListClients(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"clients": out})
}

func (s *Server) handleClientCreate(w http.ResponseWriter, r *http.Request) {
	var in admin.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateClient(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleClientGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.GetClient(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClientUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.ClientInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateClient(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClientDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteClient(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleManagersList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ListManagers(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"managers": out})
}

func (s *Server) handleManagerCreate(w http.ResponseWriter, r *http.Request) {
	var in admin.ManagerInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateManager(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleManagerUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.ManagerInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateManager(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleManagerDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteManager(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

// Classes.

func (s *Server) handleClassesList(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryInt(r, "client_id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ListClasses(r.Context(), admin.ClassFilter{
		ClientID: clientID,
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"classes": out})
}

func (s *Server) handleClassCreate(w http.ResponseWriter, r *http.Request) {
	var in admin.ClassInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateClass(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleClassGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.GetClass(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClassUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.ClassInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateClass(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClassDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteClass(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleClassStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.SetClassStatus(r.Context(), id, strings.TrimSpace(in.Status))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleDayAdvance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.game.AdvanceDay(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleDayRewind(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.game.RewindDay(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClassOverview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ClassOverview(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleClassRanking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	day, err := queryInt(r, "day")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	class, err := s.game.Class(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if day == 0 || int(day) > class.CurrentDay {
		day = int64(class.CurrentDay)
	}
	rows, err := s.game.Ranking(r.Context(), id, int(day))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"day": day, "ranking": rows})
}

func (s *Server) handleGuestQR(w http.ResponseWriter, r *http.Request) {
	classID, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	guestID, err := idParam(r, "guestID")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	owner, err := s.admin.GuestClass(r.Context(), guestID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if owner != classID {
		writeError(w, http.StatusNotFound, "student not found in this class")
		return
	}
	token, err := s.tokens.QRToken(guestID, classID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"token":      token.AccessToken,
		"expires_at": token.ExpiresAt,
		"url":        auth.QRLoginURL(s.cfg.PublicBaseURL, token.AccessToken, classID),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.gen.Enabled() {
		s.writeDomainError(w, r, aigen.ErrDisabled)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in struct {
		StockIDs []int64 `json:"stock_ids"`
		Theme    string  `json:"theme"`
		Language string  `json:"language"`
		Apply    bool    `json:"apply"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	spec, err := s.admin.PlanSpec(r.Context(), id, in.StockIDs, strings.TrimSpace(in.Theme), in.Language)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validate.Struct(spec); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	plan, err := s.gen.Generate(r.Context(), spec)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := map[string]any{"plan": plan, "applied": false}
	if in.Apply {
		res, err := s.admin.ApplyPlan(r.Context(), id, plan)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		out["applied"] = true
		out["result"] = res
	}
	writeData(w, http.StatusOK, out)
}

// Students.

func (s *Server) handleGuestsList(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ListGuests(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"guests": out})
}

func (s *Server) handleGuestCreate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.GuestInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateGuest(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleGuestsBulk(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in struct {
		Rows []admin.GuestInput `json:"rows"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if len(in.Rows) == 0 {
		s.writeDomainError(w, r, validate.Field("rows", "rows must not be empty"))
		return
	}
	if len(in.Rows) > roster.MaxRows {
		s.writeDomainError(w, r, roster.ErrTooLarge)
		return
	}
	out, err := s.admin.BulkCreate(r.Context(), id, in.Rows)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGuestsUpload(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload must be a multipart form under 5MB")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	var parsed roster.Result
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		parsed, err = roster.ParseXLSX(file)
	case ".csv", ".txt", "":
		parsed, err = roster.ParseCSV(file)
	default:
		writeError(w, http.StatusBadRequest, "file must be .csv or .xlsx")
		return
	}
	if err != nil {
		if !errors.Is(err, roster.ErrEmpty) && !errors.Is(err, roster.ErrTooLarge) && !errors.Is(err, roster.ErrNoSheet) {
			err = &badRequestError{err: err}
		}
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ImportRoster(r.Context(), id, parsed)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGuestGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.GetGuest(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGuestUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.GuestInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateGuest(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGuestDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteGuest(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

// Stocks, news and prices.

func (s *Server) handleAdminStocksList(w http.ResponseWriter, r *http.Request) {
	out, err := s.admin.ListStocks(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"stocks": out})
}

func (s *Server) handleStockCreate(w http.ResponseWriter, r *http.Request) {
	var in admin.StockInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateStock(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleStockGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.GetStock(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleStockUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.StockInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateStock(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleStockDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteStock(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleNewsList(w http.ResponseWriter, r *http.Request) {
	classID, err := queryInt(r, "class_id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if classID == 0 {
		s.writeDomainError(w, r, validate.Field("class_id", "class_id is required"))
		return
	}
	day, err := queryInt(r, "day")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ListNews(r.Context(), classID, int(day))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"news": out})
}

func (s *Server) handleNewsCreate(w http.ResponseWriter, r *http.Request) {
	var in admin.NewsInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.CreateNews(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleNewsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var in admin.NewsInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpdateNews(r.Context(), id, in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleNewsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeleteNews(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handlePricesList(w http.ResponseWriter, r *http.Request) {
	classID, err := queryInt(r, "class_id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if classID == 0 {
		s.writeDomainError(w, r, validate.Field("class_id", "class_id is required"))
		return
	}
	day, err := queryInt(r, "day")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.ListPrices(r.Context(), classID, int(day))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"prices": out})
}

func (s *Server) handlePriceUpsert(w http.ResponseWriter, r *http.Request) {
	var in admin.PriceInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.admin.UpsertPrice(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handlePriceDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.admin.DeletePrice(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"deleted": id})
}
