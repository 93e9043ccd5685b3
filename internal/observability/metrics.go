package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_chat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_chat_ws_active_connections",
			Help: "Number of active websocket sessions.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_ws_events_total",
			Help: "Total number of websocket lifecycle and client events.",
		},
		[]string{"event"},
	)
	wsDroppedSessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_chat_ws_dropped_sessions_total",
			Help: "Sessions disconnected because their send buffer was full.",
		},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_messages_total",
			Help: "Send attempts by outcome.",
		},
		[]string{"result"},
	)
	attachmentUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_attachment_uploads_total",
			Help: "Attachment uploads by outcome.",
		},
		[]string{"result"},
	)
	notificationFanoutErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_chat_notification_fanout_errors_total",
			Help: "Notifications that could not be recorded for a recipient.",
		},
	)
	broadcastErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_chat_broadcast_errors_total",
			Help: "Real-time events that could not be handed to the transport.",
		},
		[]string{"event"},
	)
	presenceOnlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_chat_presence_online_users",
			Help: "Users currently announced as online.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_chat_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		wsDroppedSessionsTotal,
		messagesTotal,
		attachmentUploadsTotal,
		notificationFanoutErrorsTotal,
		broadcastErrorsTotal,
		presenceOnlineUsers,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncWSDroppedSession() {
	wsDroppedSessionsTotal.Inc()
}

// Message send outcomes.
const (
	MessageSent     = "sent"
	MessageBlocked  = "blocked"
	MessageRejected = "rejected"
	MessageFailed   = "failed"
)

func IncMessage(result string) {
	messagesTotal.WithLabelValues(result).Inc()
}

func IncAttachmentUpload(result string) {
	attachmentUploadsTotal.WithLabelValues(result).Inc()
}

func IncNotificationFanoutError() {
	notificationFanoutErrorsTotal.Inc()
}

func IncBroadcastError(event string) {
	broadcastErrorsTotal.WithLabelValues(event).Inc()
}

func SetPresenceOnline(n int) {
	presenceOnlineUsers.Set(float64(n))
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
