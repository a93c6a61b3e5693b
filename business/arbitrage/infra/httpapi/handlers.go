package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) getParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paramsDTO(s.engine.Governance.RiskParameters(r.Context())))
}

func (s *Server) putParams(w http.ResponseWriter, r *http.Request) {
	var dto ParamsDTO
	if err := decode(w, r, &dto); err != nil {
		writeError(w, err)
		return
	}
	params, err := dto.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Governance.UpdateRiskParameters(r.Context(), callerFrom(r.Context()), params); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paramsDTO(s.engine.Governance.RiskParameters(r.Context())))
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request) {
	var dto TradeRequestDTO
	if err := decode(w, r, &dto); err != nil {
		writeError(w, err)
		return
	}
	req, err := dto.toDomain(s.clock(), s.cfg.DefaultDeadline)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.engine.Simulator.Simulate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, simulationDTO(res))
}

// execute answers with the outcome whenever one exists, next to the error
// for an aborted attempt.
func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var dto TradeRequestDTO
	if err := decode(w, r, &dto); err != nil {
		writeError(w, err)
		return
	}
	req, err := dto.toDomain(s.clock(), s.cfg.DefaultDeadline)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := s.engine.Orchestrator.Execute(r.Context(), callerFrom(r.Context()), req)
	if err != nil {
		status, body := errorBody(err)
		writeJSON(w, status, executeFailure{Response: body, Outcome: outcomeDTO(outcome)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outcome": outcomeDTO(outcome)})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var dto WithdrawDTO
	if err := decode(w, r, &dto); err != nil {
		writeError(w, err)
		return
	}
	token, err := parseAddress("token", dto.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseInt("amount", dto.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.engine.Custody.Withdraw(r.Context(), callerFrom(r.Context()), token, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.balanceDTO(dto.Token))
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	if _, err := parseAddress("token", mux.Vars(r)["token"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.balanceDTO(mux.Vars(r)["token"]))
}

func (s *Server) balanceDTO(token string) BalanceDTO {
	addr, _ := parseAddress("token", token)
	return BalanceDTO{
		Token:   addr.Hex(),
		Holder:  s.engine.Orchestrator.Address().Hex(),
		Balance: s.engine.Custody.Balance(addr).String(),
	}
}
