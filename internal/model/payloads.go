package model

import "fmt"

// DemographicsData is Census ACS population and income context
type DemographicsData struct {
	Area                  string  `json:"area"` // ZCTA or state name
	Population            int64   `json:"population"`
	Households            int64   `json:"households"`
	MedianHouseholdIncome float64 `json:"median_household_income"`
	PovertyRate           float64 `json:"poverty_rate"` // percent
	MedianAge             float64 `json:"median_age"`
}

func (d *DemographicsData) Kind() string { return AdapterDemographics }

func (d *DemographicsData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "population", float64(d.Population))
	issues = appendNonNegative(issues, "median household income", d.MedianHouseholdIncome)
	issues = appendPercent(issues, "poverty rate", d.PovertyRate)
	if d.Households > d.Population && d.Population > 0 {
		issues = append(issues, fmt.Sprintf("households (%d) exceed population (%d)", d.Households, d.Population))
	}
	if d.MedianAge < 0 || d.MedianAge > 120 {
		issues = append(issues, fmt.Sprintf("median age %.1f out of range", d.MedianAge))
	}
	return issues
}

// EnergyData is EIA residential electricity pricing and generation mix
type EnergyData struct {
	Year                  int     `json:"year"`
	ResidentialPriceCents float64 `json:"residential_price_cents"` // cents per kWh
	PreviousPriceCents    float64 `json:"previous_price_cents"`
	PriceChangePct        float64 `json:"price_change_pct"`
	NationalAvgCents      float64 `json:"national_avg_cents"`
	RenewableSharePct     float64 `json:"renewable_share_pct"`
}

func (d *EnergyData) Kind() string { return AdapterEnergy }

func (d *EnergyData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "residential price", d.ResidentialPriceCents)
	issues = appendNonNegative(issues, "previous price", d.PreviousPriceCents)
	issues = appendNonNegative(issues, "national average price", d.NationalAvgCents)
	issues = appendPercent(issues, "renewable share", d.RenewableSharePct)
	return issues
}

// ClimateData is NOAA global summary of the year for a state
type ClimateData struct {
	Year             int     `json:"year"`
	AvgTempF         float64 `json:"avg_temp_f"`
	NormalTempF      float64 `json:"normal_temp_f"`
	TempAnomalyF     float64 `json:"temp_anomaly_f"`
	AnnualPrecipIn   float64 `json:"annual_precip_in"`
	NormalPrecipIn   float64 `json:"normal_precip_in"`
	PrecipAnomalyPct float64 `json:"precip_anomaly_pct"`
	HeatDays         int     `json:"heat_days"` // days at or above 90°F
}

func (d *ClimateData) Kind() string { return AdapterClimate }

func (d *ClimateData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "annual precipitation", d.AnnualPrecipIn)
	issues = appendNonNegative(issues, "normal precipitation", d.NormalPrecipIn)
	if d.HeatDays < 0 || d.HeatDays > 366 {
		issues = append(issues, fmt.Sprintf("heat days %d out of range", d.HeatDays))
	}
	if d.AvgTempF < -80 || d.AvgTempF > 130 {
		issues = append(issues, fmt.Sprintf("average temperature %.1f°F out of range", d.AvgTempF))
	}
	return issues
}

// HousingData is HUD fair market rent plus ACS rent burden
type HousingData struct {
	Year              int     `json:"year"`
	FairMarketRent2BR float64 `json:"fair_market_rent_2br"`
	MedianGrossRent   float64 `json:"median_gross_rent"`
	RentBurdenRatio   float64 `json:"rent_burden_ratio"` // median gross rent as percent of income
	Population        int64   `json:"population"`
	RenterHouseholds  int64   `json:"renter_households"`
}

func (d *HousingData) Kind() string { return AdapterHousing }

func (d *HousingData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "fair market rent", d.FairMarketRent2BR)
	issues = appendNonNegative(issues, "median gross rent", d.MedianGrossRent)
	issues = appendNonNegative(issues, "population", float64(d.Population))
	issues = appendPercent(issues, "rent burden ratio", d.RentBurdenRatio)
	if d.RenterHouseholds > d.Population && d.Population > 0 {
		issues = append(issues, fmt.Sprintf("renter households (%d) exceed population (%d)", d.RenterHouseholds, d.Population))
	}
	return issues
}

// InfrastructureData is National Bridge Inventory condition counts
type InfrastructureData struct {
	Year         int     `json:"year"`
	TotalBridges int     `json:"total_bridges"`
	GoodBridges  int     `json:"good_bridges"`
	FairBridges  int     `json:"fair_bridges"`
	PoorBridges  int     `json:"poor_bridges"`
	PoorPct      float64 `json:"poor_pct"`
}

func (d *InfrastructureData) Kind() string { return AdapterInfrastructure }

func (d *InfrastructureData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "total bridges", float64(d.TotalBridges))
	issues = appendPercent(issues, "poor bridge share", d.PoorPct)
	if sum := d.GoodBridges + d.FairBridges + d.PoorBridges; sum > d.TotalBridges {
		issues = append(issues, fmt.Sprintf("bridge conditions (%d) exceed total bridges (%d)", sum, d.TotalBridges))
	}
	return issues
}

// Declaration is one FEMA disaster declaration
type Declaration struct {
	Number       int    `json:"number"`
	Type         string `json:"type"` // DR, EM, FM
	IncidentType string `json:"incident_type"`
	Title        string `json:"title"`
	DeclaredOn   string `json:"declared_on"` // YYYY-MM-DD
}

// EmergencyData is OpenFEMA declaration history for a state
type EmergencyData struct {
	TotalDeclarations  int            `json:"total_declarations"`
	RecentDeclarations int            `json:"recent_declarations"` // last five years
	Declarations       []Declaration  `json:"declarations"`
	IncidentCounts     map[string]int `json:"incident_counts"`
	IHPApproved        float64        `json:"ihp_approved"` // individual & household program dollars
}

func (d *EmergencyData) Kind() string { return AdapterEmergency }

func (d *EmergencyData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "IHP approved", d.IHPApproved)
	if d.RecentDeclarations > d.TotalDeclarations {
		issues = append(issues, fmt.Sprintf("recent declarations (%d) exceed total (%d)", d.RecentDeclarations, d.TotalDeclarations))
	}
	if len(d.Declarations) > d.TotalDeclarations {
		issues = append(issues, fmt.Sprintf("listed declarations (%d) exceed total (%d)", len(d.Declarations), d.TotalDeclarations))
	}
	return issues
}

// HasIncident reports whether the declaration history contains the incident type
func (d *EmergencyData) HasIncident(incidentType string) bool {
	return d.IncidentCounts[incidentType] > 0
}

// CrimeData is NCVS victimization and reporting for a census region
type CrimeData struct {
	Year          int     `json:"year"`
	Region        string  `json:"region"`
	Reported      int64   `json:"reported"`
	Unreported    int64   `json:"unreported"`
	ReportingRate float64 `json:"reporting_rate"` // percent reported to police
	ViolentRate   float64 `json:"violent_rate"`   // per 1,000 persons age 12+
	PropertyRate  float64 `json:"property_rate"`  // per 1,000 households
}

func (d *CrimeData) Kind() string { return AdapterCrime }

func (d *CrimeData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "reported victimizations", float64(d.Reported))
	issues = appendNonNegative(issues, "unreported victimizations", float64(d.Unreported))
	issues = appendPercent(issues, "reporting rate", d.ReportingRate)
	issues = appendNonNegative(issues, "violent rate", d.ViolentRate)
	issues = appendNonNegative(issues, "property rate", d.PropertyRate)
	return issues
}

// Candidate is a campaign with its reported receipts
type Candidate struct {
	Name     string  `json:"name"`
	Party    string  `json:"party"`
	Office   string  `json:"office"`
	Receipts float64 `json:"receipts"`
}

// CampaignFinanceData is FEC candidate totals for a state and cycle
type CampaignFinanceData struct {
	Cycle              int         `json:"cycle"`
	CandidateCount     int         `json:"candidate_count"`
	TotalReceipts      float64     `json:"total_receipts"`
	TotalDisbursements float64     `json:"total_disbursements"`
	PACContributions   float64     `json:"pac_contributions"`
	TopCandidates      []Candidate `json:"top_candidates"`
}

func (d *CampaignFinanceData) Kind() string { return AdapterCampaignFinance }

func (d *CampaignFinanceData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "total receipts", d.TotalReceipts)
	issues = appendNonNegative(issues, "total disbursements", d.TotalDisbursements)
	issues = appendNonNegative(issues, "PAC contributions", d.PACContributions)
	if d.PACContributions > d.TotalReceipts {
		issues = append(issues, "PAC contributions exceed total receipts")
	}
	if len(d.TopCandidates) > d.CandidateCount {
		issues = append(issues, fmt.Sprintf("listed candidates (%d) exceed candidate count (%d)", len(d.TopCandidates), d.CandidateCount))
	}
	return issues
}

// Member is a sitting member of Congress
type Member struct {
	Name     string `json:"name"`
	Party    string `json:"party"`
	Chamber  string `json:"chamber"` // House, Senate
	District int    `json:"district,omitempty"`
}

// Bill is a recently acted-on bill
type Bill struct {
	Number       string `json:"number"` // e.g. "HR 1234"
	Title        string `json:"title"`
	PolicyArea   string `json:"policy_area"`
	LatestAction string `json:"latest_action"`
	ActionDate   string `json:"action_date"`
}

// LegislativeData is Congress.gov membership and bill activity
type LegislativeData struct {
	Congress int      `json:"congress"`
	Members  []Member `json:"members"`
	Bills    []Bill   `json:"bills"`
}

func (d *LegislativeData) Kind() string { return AdapterLegislative }

func (d *LegislativeData) Check() []string {
	var issues []string
	for _, m := range d.Members {
		if m.Chamber != "House" && m.Chamber != "Senate" {
			issues = append(issues, fmt.Sprintf("member %s has unknown chamber %q", m.Name, m.Chamber))
		}
	}
	senators := 0
	for _, m := range d.Members {
		if m.Chamber == "Senate" {
			senators++
		}
	}
	if senators > 2 {
		issues = append(issues, fmt.Sprintf("%d senators listed for one state", senators))
	}
	return issues
}

// HigherEducationData is College Scorecard aggregates for a state
type HigherEducationData struct {
	Year              int     `json:"year"`
	Institutions      int     `json:"institutions"`
	AvgNetPrice       float64 `json:"avg_net_price"`
	AvgInStateTuition float64 `json:"avg_in_state_tuition"`
	MedianDebt        float64 `json:"median_debt"`
	PellGrantRate     float64 `json:"pell_grant_rate"` // percent of undergraduates
}

func (d *HigherEducationData) Kind() string { return AdapterHigherEducation }

func (d *HigherEducationData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "institutions", float64(d.Institutions))
	issues = appendNonNegative(issues, "net price", d.AvgNetPrice)
	issues = appendNonNegative(issues, "tuition", d.AvgInStateTuition)
	issues = appendNonNegative(issues, "median debt", d.MedianDebt)
	issues = appendPercent(issues, "Pell grant rate", d.PellGrantRate)
	return issues
}

// VeteransData is VA facility coverage for a state
type VeteransData struct {
	Facilities       int     `json:"facilities"`
	HealthFacilities int     `json:"health_facilities"`
	BenefitsOffices  int     `json:"benefits_offices"`
	VetCenters       int     `json:"vet_centers"`
	AvgWaitDays      float64 `json:"avg_wait_days"` // new-patient primary care
}

func (d *VeteransData) Kind() string { return AdapterVeterans }

func (d *VeteransData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "average wait", d.AvgWaitDays)
	if sum := d.HealthFacilities + d.BenefitsOffices + d.VetCenters; sum > d.Facilities {
		issues = append(issues, fmt.Sprintf("facility types (%d) exceed facilities (%d)", sum, d.Facilities))
	}
	return issues
}

// AgencyAmount is federal obligations attributed to one agency
type AgencyAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// SpendingData is USAspending obligations to a state
type SpendingData struct {
	FiscalYear       int            `json:"fiscal_year"`
	TotalObligations float64        `json:"total_obligations"`
	PriorObligations float64        `json:"prior_obligations"`
	ChangePct        float64        `json:"change_pct"`
	Population       int64          `json:"population"`
	PerCapita        float64        `json:"per_capita"`
	TopAgencies      []AgencyAmount `json:"top_agencies"`
}

func (d *SpendingData) Kind() string { return AdapterSpending }

func (d *SpendingData) Check() []string {
	var issues []string
	issues = appendNonNegative(issues, "total obligations", d.TotalObligations)
	issues = appendNonNegative(issues, "population", float64(d.Population))
	var agencyTotal float64
	for _, a := range d.TopAgencies {
		agencyTotal += a.Amount
	}
	if agencyTotal > d.TotalObligations*1.0001 {
		issues = append(issues, "agency obligations exceed state total")
	}
	return issues
}

// RegDocument is a Federal Register document
type RegDocument struct {
	DocumentNumber  string   `json:"document_number"`
	Title           string   `json:"title"`
	Type            string   `json:"type"` // Rule, Proposed Rule, Notice
	Agencies        []string `json:"agencies"`
	PublicationDate string   `json:"publication_date"`
}

// RegulatoryData is recent Federal Register activity mentioning a state
type RegulatoryData struct {
	TotalCount        int           `json:"total_count"`
	RuleCount         int           `json:"rule_count"`
	ProposedRuleCount int           `json:"proposed_rule_count"`
	NoticeCount       int           `json:"notice_count"`
	Agencies          []string      `json:"agencies"`
	Documents         []RegDocument `json:"documents"`
}

func (d *RegulatoryData) Kind() string { return AdapterRegulatory }

func (d *RegulatoryData) Check() []string {
	var issues []string
	if sum := d.RuleCount + d.ProposedRuleCount + d.NoticeCount; sum > d.TotalCount {
		issues = append(issues, fmt.Sprintf("document types (%d) exceed total (%d)", sum, d.TotalCount))
	}
	return issues
}

func appendNonNegative(issues []string, name string, v float64) []string {
	if v < 0 {
		return append(issues, fmt.Sprintf("%s is negative (%g)", name, v))
	}
	return issues
}

func appendPercent(issues []string, name string, v float64) []string {
	if v < 0 || v > 100 {
		return append(issues, fmt.Sprintf("%s %.1f%% out of range", name, v))
	}
	return issues
}
