package models

// DNSRecord is one address record.
type DNSRecord struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

// DNSZone is one configured zone.
type DNSZone struct {
	Name          string `json:"name"`
	Authoritative bool   `json:"authoritative"`
}

// DNSRecordsResponse is the response for GET /dns/records.
type DNSRecordsResponse struct {
	Server  string      `json:"server"`
	Mode    string      `json:"mode"`
	Zones   []DNSZone   `json:"zones"`
	Records []DNSRecord `json:"records"`
	Count   int         `json:"count"`
}

// AddDNSRecordRequest is the request body for POST /dns/records.
type AddDNSRecordRequest struct {
	Name    string `json:"name"    binding:"required"`
	Address string `json:"address" binding:"required"`
}

// DNSRecordOperationResponse is returned by record mutations.
type DNSRecordOperationResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
