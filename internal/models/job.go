package models

import "strings"

// Job is one posting assembled from a listing article and its detail page.
// Empty fields are absent and are omitted from structured output.
type Job struct {
	Title              string   `json:"title,omitempty"`
	URL                string   `json:"url,omitempty"`
	Company            string   `json:"company,omitempty"`
	CompanyURL         string   `json:"company_url,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	Location           string   `json:"location,omitempty"`
	PostedDate         string   `json:"posted_date,omitempty"`
	ContractTypes      []string `json:"contract_types,omitempty"`
	Salary             string   `json:"salary,omitempty"`
	DescriptionPreview string   `json:"description_preview,omitempty"`
	FullDescription    string   `json:"full_description,omitempty"`
	CompanyLogoURL     string   `json:"company_logo_url,omitempty"`
	Experience         string   `json:"experience,omitempty"`
}

// Column names in the order they are declared on Job.
const (
	ColTitle              = "title"
	ColURL                = "url"
	ColCompany            = "company"
	ColCompanyURL         = "company_url"
	ColIndustry           = "industry"
	ColLocation           = "location"
	ColPostedDate         = "posted_date"
	ColContractTypes      = "contract_types"
	ColSalary             = "salary"
	ColDescriptionPreview = "description_preview"
	ColFullDescription    = "full_description"
	ColCompanyLogoURL     = "company_logo_url"
	ColExperience         = "experience"
)

// ContractTypesSeparator joins ContractTypes into one flat value.
const ContractTypesSeparator = ", "

// Fields returns the populated fields of the job keyed by column name.
// ContractTypes is flattened with ContractTypesSeparator.
func (j Job) Fields() map[string]string {
	out := make(map[string]string, 13)
	put := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			out[key] = value
		}
	}
	put(ColTitle, j.Title)
	put(ColURL, j.URL)
	put(ColCompany, j.Company)
	put(ColCompanyURL, j.CompanyURL)
	put(ColIndustry, j.Industry)
	put(ColLocation, j.Location)
	put(ColPostedDate, j.PostedDate)
	put(ColContractTypes, strings.Join(j.ContractTypes, ContractTypesSeparator))
	put(ColSalary, j.Salary)
	put(ColDescriptionPreview, j.DescriptionPreview)
	put(ColFullDescription, j.FullDescription)
	put(ColCompanyLogoURL, j.CompanyLogoURL)
	put(ColExperience, j.Experience)
	return out
}

// Set assigns a flat value to the field named by column. ContractTypes is
// split on ContractTypesSeparator. Unknown columns report false.
func (j *Job) Set(column, value string) bool {
	switch column {
	case ColTitle:
		j.Title = value
	case ColURL:
		j.URL = value
	case ColCompany:
		j.Company = value
	case ColCompanyURL:
		j.CompanyURL = value
	case ColIndustry:
		j.Industry = value
	case ColLocation:
		j.Location = value
	case ColPostedDate:
		j.PostedDate = value
	case ColContractTypes:
		j.ContractTypes = nil
		for _, part := range strings.Split(value, ContractTypesSeparator) {
			if part = strings.TrimSpace(part); part != "" {
				j.ContractTypes = append(j.ContractTypes, part)
			}
		}
	case ColSalary:
		j.Salary = value
	case ColDescriptionPreview:
		j.DescriptionPreview = value
	case ColFullDescription:
		j.FullDescription = value
	case ColCompanyLogoURL:
		j.CompanyLogoURL = value
	case ColExperience:
		j.Experience = value
	default:
		return false
	}
	return true
}

// IsEmpty reports whether no field of the job is populated.
func (j Job) IsEmpty() bool {
	return len(j.Fields()) == 0
}
