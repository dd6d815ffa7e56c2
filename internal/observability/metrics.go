package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MStockAdjustments        MetricKey = "cart_stock_adjustments_total"
	MCartRecalculations      MetricKey = "cart_recalculations_total"
	MAdjustmentEvents        MetricKey = "cart_adjustment_events_total"
)
