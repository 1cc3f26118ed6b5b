package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"

	"github.com/munashe04/buyza/pkg/server/middleware"
)

func (s *StepsContext) registerAdminSteps(sc *godog.ScenarioContext) {
	// Authentication steps
	sc.Step(`^I am authenticated as agent "([^"]*)"$`, s.iAmAuthenticatedAsAgent)
	sc.Step(`^I am not authenticated$`, s.iAmNotAuthenticated)
	sc.Step(`^I authenticate with an expired token for agent "([^"]*)"$`, s.iAuthenticateWithExpiredToken)
	sc.Step(`^I authenticate with a token signed by another secret$`, s.iAuthenticateWithForeignToken)

	// Admin API steps
	sc.Step(`^I list the orders of "([^"]*)"$`, s.iListTheOrdersOf)
	sc.Step(`^I fetch the latest order of "([^"]*)"$`, s.iFetchTheLatestOrderOf)
	sc.Step(`^I quote "([^"]*)" for the latest order of "([^"]*)"$`, s.iQuoteForTheLatestOrderOf)
	sc.Step(`^I set the status of the latest order of "([^"]*)" to "([^"]*)"$`, s.iSetTheStatusOfTheLatestOrderOf)
	sc.Step(`^I send "([^"]*)" the agent message "([^"]*)"$`, s.iSendTheAgentMessage)
}

func (s *StepsContext) iAmAuthenticatedAsAgent(agent string) error {
	token, err := middleware.NewJWTAuthenticator([]byte(testJWTSecret)).Issue(agent, time.Hour)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iAmNotAuthenticated() error {
	s.authToken = ""
	return nil
}

func (s *StepsContext) signToken(secret string, claims jwt.RegisteredClaims) error {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iAuthenticateWithExpiredToken(agent string) error {
	issued := time.Now().Add(-2 * time.Hour)
	return s.signToken(testJWTSecret, jwt.RegisteredClaims{
		Issuer:    middleware.Issuer,
		Subject:   agent,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	})
}

func (s *StepsContext) iAuthenticateWithForeignToken() error {
	return s.signToken("some-other-secret", jwt.RegisteredClaims{
		Issuer:    middleware.Issuer,
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
}

// adminRequest sends an authenticated request to the admin API
func (s *StepsContext) adminRequest(method, path string, body interface{}) error {
	headers := map[string]string{}
	if s.authToken != "" {
		headers["Authorization"] = "Bearer " + s.authToken
	}
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return err
		}
		headers["Content-Type"] = "application/json"
	}
	return s.do(method, "/admin"+path, data, headers)
}

func (s *StepsContext) iListTheOrdersOf(phone string) error {
	return s.adminRequest(http.MethodGet, "/customers/"+url.PathEscape(phone)+"/orders", nil)
}

func (s *StepsContext) iFetchTheLatestOrderOf(phone string) error {
	id, err := s.latestLedgerOrderID(phone)
	if err != nil {
		return err
	}
	return s.adminRequest(http.MethodGet, "/orders/"+url.PathEscape(id), nil)
}

func (s *StepsContext) iQuoteForTheLatestOrderOf(amount, phone string) error {
	id, err := s.latestLedgerOrderID(phone)
	if err != nil {
		return err
	}
	return s.adminRequest(http.MethodPost, "/orders/"+url.PathEscape(id)+"/quote", map[string]string{"amount": amount})
}

func (s *StepsContext) iSetTheStatusOfTheLatestOrderOf(phone, status string) error {
	id, err := s.latestLedgerOrderID(phone)
	if err != nil {
		return err
	}
	return s.adminRequest(http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", map[string]string{"status": status})
}

func (s *StepsContext) iSendTheAgentMessage(to, body string) error {
	return s.adminRequest(http.MethodPost, "/messages", map[string]string{"to": to, "body": body})
}
