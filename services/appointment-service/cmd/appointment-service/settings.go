package main

import (
	"time"

	"github.com/md-rashed-zaman/dentalcare/libs/config"
	"github.com/md-rashed-zaman/dentalcare/libs/kafkax"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/lifecycle"
	"github.com/md-rashed-zaman/dentalcare/services/appointment-service/internal/patients"
)

type settings struct {
	Service     string
	Port        string
	GRPCPort    string
	DatabaseURL string
	LogLevel    string

	KafkaBrokers    []string
	KafkaGroupID    string
	PatientTopics   []string
	OutboxPoll      time.Duration
	OutboxBatchSize int

	RedisAddr         string
	RedisPassword     string
	RateLimitPerMin   int
	RateLimitFailOpen bool

	AuthSecret  string
	CORSOrigins []string
	HorizonDays int
}

func loadSettings() (settings, error) {
	var (
		s   settings
		err error
	)
	s.Service = config.String("SERVICE_NAME", "appointment-service")
	s.LogLevel = config.String("LOG_LEVEL", "info")
	if s.Port, err = config.Port("PORT", "8085"); err != nil {
		return s, err
	}
	if raw := config.String("GRPC_PORT", ""); raw != "" {
		if s.GRPCPort, err = config.Port("GRPC_PORT", ""); err != nil {
			return s, err
		}
	}
	if s.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return s, err
	}
	if s.AuthSecret, err = config.RequiredString("AUTH_HS256_SECRET"); err != nil {
		return s, err
	}

	s.KafkaBrokers = kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	s.KafkaGroupID = config.String("KAFKA_GROUP_ID", s.Service)
	s.PatientTopics = config.List("KAFKA_PATIENT_TOPICS")
	if len(s.PatientTopics) == 0 {
		s.PatientTopics = patients.Topics
	}
	if s.OutboxPoll, err = config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second); err != nil {
		return s, err
	}
	if s.OutboxBatchSize, err = config.Int("OUTBOX_BATCH_SIZE", 50); err != nil {
		return s, err
	}

	s.RedisAddr = config.String("REDIS_ADDR", "")
	s.RedisPassword = config.String("REDIS_PASSWORD", "")
	if s.RateLimitPerMin, err = config.Int("RATE_LIMIT_PER_MINUTE", 30); err != nil {
		return s, err
	}
	if s.RateLimitFailOpen, err = config.Bool("RATE_LIMIT_FAIL_OPEN", true); err != nil {
		return s, err
	}

	s.CORSOrigins = config.List("CORS_ALLOWED_ORIGINS")
	if s.HorizonDays, err = config.Int("BOOKING_HORIZON_DAYS", lifecycle.DefaultHorizonDays); err != nil {
		return s, err
	}
	return s, nil
}
