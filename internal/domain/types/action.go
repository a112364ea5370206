package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionCreateRide   = "create_ride"
	ActionAcceptRide   = "accept_ride"
	ActionStartRide    = "start_ride"
	ActionCompleteRide = "complete_ride"
	ActionCancelRide   = "cancel_ride"
	ActionRateRide     = "rate_ride"
	ActionPostMessage  = "post_message"
	ActionActiveRide   = "get_active_ride"
	ActionGetRide      = "get_ride"
	ActionRideHistory  = "ride_history"

	ActionDispatch       = "dispatch_ride"
	ActionNotify         = "notify_party"
	ActionRejoin         = "rejoin_ride"
	ActionPublishStatus  = "publish_ride_status"
	ActionDriverOnline   = "driver_online"
	ActionDriverOffline  = "driver_offline"
	ActionDriverLocation = "driver_location"
	ActionWSConnect      = "ws_connect"
	ActionPanicRecovered = "panic_recovered"
)
