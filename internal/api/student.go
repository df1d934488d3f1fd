package api

import (
	"errors"
	"net/http"
	"strings"

	"classtrade/internal/auth"
	"classtrade/internal/game"
	"classtrade/internal/validate"
)

type studentLoginRequest struct {
	ClassID int64  `json:"class_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"notblank"`
	Phone   string `json:"phone" validate:"notblank"`
}

type qrLoginRequest struct {
	Token   string `json:"token" validate:"notblank"`
	ClassID int64  `json:"class_id" validate:"required,gt=0"`
}

type loginResponse struct {
	Session       auth.Session `json:"session"`
	Guest         game.Guest   `json:"guest"`
	NeedsNickname bool         `json:"needs_nickname"`
}

func (s *Server) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var in studentLoginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validate.Struct(in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	g, err := s.game.Login(r.Context(), in.ClassID, in.Name, in.Phone)
	if err != nil {
		if errors.Is(err, game.ErrGuestNotFound) {
			writeError(w, http.StatusUnauthorized, "name or phone does not match a student in this class")
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	s.issueGuestSession(w, r, g)
}

func (s *Server) handleQRLogin(w http.ResponseWriter, r *http.Request) {
	var in qrLoginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validate.Struct(in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.qrLogin(w, r, in.Token, in.ClassID)
}

// handleQRLoginLink serves the URL encoded in printed QR codes.
func (s *Server) handleQRLoginLink(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	classID, err := queryInt(r, "classId")
	if err != nil || token == "" || classID == 0 {
		writeError(w, http.StatusBadRequest, "token and classId are required")
		return
	}
	s.qrLogin(w, r, token, classID)
}

func (s *Server) qrLogin(w http.ResponseWriter, r *http.Request, token string, classID int64) {
	guestID, err := s.tokens.VerifyQR(token, classID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	g, err := s.game.LoginByID(r.Context(), guestID, classID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.issueGuestSession(w, r, g)
}

func (s *Server) issueGuestSession(w http.ResponseWriter, r *http.Request, g game.Guest) {
	session, err := s.tokens.GuestSession(g.ID, g.ClassID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, loginResponse{Session: session, Guest: g, NeedsNickname: g.Nickname == ""})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Dashboard(r.Context(), p.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleStudentRanking(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	class, err := s.game.Class(r.Context(), p.ClassID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	rows, err := s.game.Ranking(r.Context(), p.ClassID, class.CurrentDay)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	me, _ := game.RankOf(rows, p.ID)
	writeData(w, http.StatusOK, map[string]any{"day": class.CurrentDay, "ranking": rows, "me": me})
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.ListStocks(r.Context(), p.ClassID, p.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"stocks": out})
}

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	stockID, err := idParam(r, "id")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.game.StockDetail(r.Context(), p.ClassID, stockID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleStudentNews(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	day, err := queryInt(r, "day")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.game.ListNews(r.Context(), p.ClassID, int(day))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"news": out})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out, err := s.game.Transactions(r.Context(), p.ID, int(limit))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleNickname(w http.ResponseWriter, r *http.Request) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Nickname string `json:"nickname"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	g, err := s.game.SetNickname(r.Context(), p.ID, in.Nickname)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, g)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, game.SideBuy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, game.SideSell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, side string) {
	p, err := principalFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in game.TradeInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validate.Struct(in); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	in.GuestID = p.ID
	in.ClassID = p.ClassID

	var out game.TradeResult
	if side == game.SideBuy {
		out, err = s.game.Buy(r.Context(), in)
	} else {
		out, err = s.game.Sell(r.Context(), in)
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}
