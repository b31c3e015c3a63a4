package portal

const (
	hostLogin    = "https://connexion.hydroquebec.com"
	hostSession  = "https://session.hydroquebec.com"
	hostServices = "https://cl-services.idp.hydroquebec.com"
	hostSpring   = "https://cl-ec-spring.hydroquebec.com"
)

// Endpoints lists every portal URL the client touches. Tests point these at
// an httptest server.
type Endpoints struct {
	Authenticate    string // callback-template retrieval and credential submission
	SecurityConfig  string // OAuth client id / redirect URI / scope discovery
	Authorize       string // OAuth authorize, answers with a 302
	TokenConversion string // access-token → service-layer session exchange
	Relations       string // account/customer relations listing

	InfoBase           string // base partner info, first selection call
	SessionRefresh     string // session mode update, second selection call
	AccountPage        string // account management page, third selection call + summary scrape
	ContractDetail     string // per-ncc contract lookup on multi-contract accounts
	ConsumptionProfile string // consumption-profile landing page, fourth selection call

	PeriodsFirstPage string // actionAfficherPremierePage, primes the periods resource
	PeriodsResource  string // current/all periods data
	Annual           string
	Monthly          string
	Daily            string
	HourlyEnergy     string
	HourlyWeather    string

	// SessionHost is the host whose cookies carry the selected-customer
	// state; forced reselection evicts them.
	SessionHost string
}

func DefaultEndpoints() Endpoints {
	const profile = hostSpring + "/portail/fr/group/clientele/portrait-de-consommation"
	return Endpoints{
		Authenticate:    hostLogin + "/hqam/json/realms/root/realms/clients/authenticate",
		SecurityConfig:  hostSession + "/config/security.json",
		Authorize:       hostLogin + "/hqam/oauth2/authorize",
		TokenConversion: hostServices + "/cl/prive/api/v3_0/conversion/codeAcces",
		Relations:       hostServices + "/cl/prive/api/v1_0/relations",

		InfoBase:           hostServices + "/cl/prive/api/v3_0/partenaires/infoBase",
		SessionRefresh:     hostSpring + "/portail/prive/maj-session/",
		AccountPage:        hostSpring + "/portail/fr/group/clientele/gerer-mon-compte/",
		ContractDetail:     hostSpring + "/portail/fr/group/clientele/gerer-mon-compte/resourceObtenirCompte",
		ConsumptionProfile: profile,

		PeriodsFirstPage: profile + "/actionAfficherPremierePage",
		PeriodsResource:  profile + "/resourceObtenirDonneesPeriodesConsommation",
		Annual:           profile + "/resourceObtenirDonneesConsommationAnnuelles",
		Monthly:          profile + "/resourceObtenirDonneesConsommationMensuelles",
		Daily:            profile + "/resourceObtenirDonneesQuotidiennesConsommation",
		HourlyEnergy:     profile + "/resourceObtenirDonneesConsommationHoraires",
		HourlyWeather:    profile + "/resourceObtenirDonneesMeteoHoraires",

		SessionHost: "cl-ec-spring.hydroquebec.com",
	}
}
