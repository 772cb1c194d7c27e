package entities

import "crm-system/pkg/constants"

type KanbanColumn struct {
	Status constants.RequestStatus `json:"status"`
	Title  string                  `json:"title"`
	Count  int                     `json:"count"`
	Items  []RequestView           `json:"items"`
}

type StatusCount struct {
	Status     constants.RequestStatus `json:"status"`
	HumanTitle string                  `json:"humanTitle"`
	Count      int                     `json:"count"`
}

type TypeCount struct {
	Type  constants.RequestType `json:"type"`
	Count int                   `json:"count"`
}

type RequestStats struct {
	TotalRequests int           `json:"totalRequests"`
	PerStatus     []StatusCount `json:"perStatus"`
	PerType       []TypeCount   `json:"perType"`
}
