package portal

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakePortal simulates the provider: the login chain, the selection sequence
// and the consumption resources. Response bodies are swappable per test.
type fakePortal struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	calls       map[string]int
	authCookies map[string]string

	username string
	password string

	accountHTML  string
	contractHTML string

	periodsJSON string
	annualJSON  string
	monthlyJSON string
	dailyJSON   string
	energyJSON  string
	weatherJSON string
}

const singleAccountHTML = `<html><body>
<p class="solde">1 137,45 $</p>
<div class="contrat">Contrat
	1234 5678</div>
</body></html>`

func newFakePortal(t *testing.T) *fakePortal {
	t.Helper()
	f := &fakePortal{
		t:           t,
		calls:       map[string]int{},
		username:    "jane",
		password:    "hunter2",
		accountHTML: singleAccountHTML,
		periodsJSON: `{"success":true,"results":[{
			"montantFacturePeriode": 42.5,
			"montantProjetePeriode": 60.0,
			"nbJourLecturePeriode": 10,
			"nbJourPrevuPeriode": 60,
			"moyenneDollarsJourPeriode": 4.25,
			"moyenneKwhJourPeriode": 33.1,
			"consoTotalPeriode": 331.0,
			"consoRegPeriode": 300.0,
			"consoHautPeriode": 31.0
		}]}`,
		annualJSON: `{"success":true,"results":[{
			"courant": {"consoTotalAnnee": 12000.0, "dateDebutAnnee": "2025-01-01", "dateFinAnnee": "2025-12-31"},
			"compare": {"consoTotalAnnee": 11000.0}
		}]}`,
		monthlyJSON: `{"success":true,"results":[{
			"courant": {"dateDebutMois": "2025-07-01", "consoTotalMois": 900.0},
			"compare": {"consoTotalMois": 850.0}
		}]}`,
		dailyJSON: `{"success":true,"results":[
			{"courant": {"dateJourConso": "2025-08-30", "consoTotalQuot": 31.5, "tempMoyenneQuot": 21.0},
			 "compare": {"consoTotalQuot": 29.0}},
			{"courant": {"dateJourConso": "2025-08-31", "consoTotalQuot": 28.25}}
		]}`,
		energyJSON: `{"success":true,"results":{"listeDonneesConsoEnergieHoraire":[
			{"consoReg": 1.0, "consoHaut": 0.25, "consoTotal": 1.25},
			{"consoReg": 0.75, "consoHaut": 0.0, "consoTotal": 0.75},
			{"consoReg": 2.0, "consoHaut": 0.5, "consoTotal": 2.5}
		]}}`,
		weatherJSON: `{"success":true,"results":[{
			"tempMoyJour": 18.5, "tempMinJour": 12.0, "tempMaxJour": 24.0,
			"listeTemperaturesHeure": [17.0, 16.5, null]
		}]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth", f.handleAuth)
	mux.HandleFunc("/security.json", f.handleSecurity)
	mux.HandleFunc("/authorize", f.handleAuthorize)
	mux.HandleFunc("/callback", f.count("callback", "ok"))
	mux.HandleFunc("/conversion", f.count("conversion", "{}"))
	mux.HandleFunc("/relations", f.count("relations",
		`[{"noPartenaireDemandeur":"ACC1","noPartenaireTitulaire":"CUST1"}]`))
	mux.HandleFunc("/infobase", f.count("infobase", "{}"))
	mux.HandleFunc("/refresh", f.count("refresh", "{}"))
	mux.HandleFunc("/account", f.serveDynamic("account", &f.accountHTML))
	mux.HandleFunc("/contract-detail", f.serveDynamic("contract-detail", &f.contractHTML))
	mux.HandleFunc("/profile", f.count("profile", "ok"))
	mux.HandleFunc("/periods-first", f.count("periods-first", "ok"))
	mux.HandleFunc("/periods", f.serveDynamic("periods", &f.periodsJSON))
	mux.HandleFunc("/annual", f.serveDynamic("annual", &f.annualJSON))
	mux.HandleFunc("/monthly", f.serveDynamic("monthly", &f.monthlyJSON))
	mux.HandleFunc("/daily", f.serveDynamic("daily", &f.dailyJSON))
	mux.HandleFunc("/hourly-energy", f.serveDynamic("hourly-energy", &f.energyJSON))
	mux.HandleFunc("/hourly-weather", f.serveDynamic("hourly-weather", &f.weatherJSON))

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePortal) endpoints() Endpoints {
	base := f.server.URL
	return Endpoints{
		Authenticate:    base + "/auth",
		SecurityConfig:  base + "/security.json",
		Authorize:       base + "/authorize",
		TokenConversion: base + "/conversion",
		Relations:       base + "/relations",

		InfoBase:           base + "/infobase",
		SessionRefresh:     base + "/refresh",
		AccountPage:        base + "/account",
		ContractDetail:     base + "/contract-detail",
		ConsumptionProfile: base + "/profile",

		PeriodsFirstPage: base + "/periods-first",
		PeriodsResource:  base + "/periods",
		Annual:           base + "/annual",
		Monthly:          base + "/monthly",
		Daily:            base + "/daily",
		HourlyEnergy:     base + "/hourly-energy",
		HourlyWeather:    base + "/hourly-weather",

		SessionHost: f.server.Listener.Addr().String(),
	}
}

func (f *fakePortal) newClient() *Client {
	client := NewClient(f.username, f.password, 5*time.Second,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.SetEndpoints(f.endpoints())
	return client
}

func (f *fakePortal) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakePortal) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// authCookie returns the named cookie the last authenticate call carried.
func (f *fakePortal) authCookie(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCookies[name]
}

func (f *fakePortal) count(name, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		f.record(name)
		fmt.Fprint(w, body)
	}
}

func (f *fakePortal) serveDynamic(name string, body *string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		f.record(name)
		fmt.Fprint(w, *body)
	}
}

// handleAuth serves the empty callback template on the first POST and checks
// the submitted credentials on the second.
func (f *fakePortal) handleAuth(w http.ResponseWriter, r *http.Request) {
	f.record("auth")
	f.mu.Lock()
	f.authCookies = map[string]string{}
	for _, ck := range r.Cookies() {
		f.authCookies[ck.Name] = ck.Value
	}
	f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	if len(body) == 0 {
		fmt.Fprint(w, `{"authId":"a1","callbacks":[
			{"type":"NameCallback","input":[{"name":"IDToken1","value":""}]},
			{"type":"PasswordCallback","input":[{"name":"IDToken2","value":""}]}
		]}`)
		return
	}

	var tpl callbackTemplate
	if err := json.Unmarshal(body, &tpl); err != nil {
		http.Error(w, "bad template", http.StatusBadRequest)
		return
	}
	if len(tpl.Callbacks) < 2 ||
		tpl.Callbacks[0].Input[0].Value != f.username ||
		tpl.Callbacks[1].Input[0].Value != f.password {
		// The provider answers bad credentials with a fresh template, not
		// an error status.
		fmt.Fprint(w, `{"authId":"a2","callbacks":[
			{"type":"NameCallback","input":[{"name":"IDToken1","value":""}]},
			{"type":"PasswordCallback","input":[{"name":"IDToken2","value":""}]}
		]}`)
		return
	}
	fmt.Fprint(w, `{"tokenId":"tok-1"}`)
}

func (f *fakePortal) handleSecurity(w http.ResponseWriter, _ *http.Request) {
	f.record("security")
	fmt.Fprintf(w, `{"oauth2":[{"clientId":"web","redirectUri":"%s/callback","scope":"openid"}]}`,
		f.server.URL)
}

func (f *fakePortal) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	f.record("authorize")
	if r.URL.Query().Get("state") == "" || r.URL.Query().Get("nonce") == "" {
		http.Error(w, "missing state/nonce", http.StatusBadRequest)
		return
	}
	w.Header().Set("Location", f.server.URL+"/callback#access_token=TOKEN123&id_token=x")
	w.WriteHeader(http.StatusFound)
}
