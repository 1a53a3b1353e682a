package models

// CreateRequestPayload is the inbound shape for opening a request. Exactly
// one of RequestedAssets / RequestedCount must be supplied.
type CreateRequestPayload struct {
	RequestType     string  `json:"request_type" binding:"required"`
	RequestedAssets []int   `json:"requested_assets"`
	RequestedCount  int     `json:"requested_count" binding:"omitempty,gte=1"`
	ScopeLevel      string  `json:"scope_level"`
	DepartmentID    int     `json:"department_id" binding:"required"`
	HospitalID      int     `json:"hospital_id" binding:"required"`
	OrganizationID  int     `json:"organization_id" binding:"required"`
	Justification   string  `json:"justification"`
	Priority        string  `json:"priority"`
	EstimatedCost   float64 `json:"estimated_cost" binding:"omitempty,gte=0"`
}

type DecisionPayload struct {
	Remarks string `json:"remarks"`
}

type AssetSetPayload struct {
	AssetIDs []int  `json:"asset_ids" binding:"required,min=1"`
	Remarks  string `json:"remarks"`
}
