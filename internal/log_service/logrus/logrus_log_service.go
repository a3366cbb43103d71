package logruslog

import (
	"io"
	"strings"
	"time"

	"github.com/objectstream/crudfs/internal/log_service"
	"github.com/sirupsen/logrus"
)

// LogrusLogService adapts a logrus logger to the LogService interface.
type LogrusLogService struct {
	component string
	logger    *logrus.Logger
}

func NewLogrusLogService(component string, minLogLevel ...string) *LogrusLogService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.InfoLevel)

	service := &LogrusLogService{
		component: component,
		logger:    logger,
	}

	if len(minLogLevel) > 0 && minLogLevel[0] != "" {
		service.SetMinLogLevel(minLogLevel[0])
	}

	return service
}

func (ls *LogrusLogService) SetMinLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case log_service.DebugLevel:
		ls.logger.SetLevel(logrus.DebugLevel)
	case log_service.InfoLevel:
		ls.logger.SetLevel(logrus.InfoLevel)
	case log_service.WarnLevel:
		ls.logger.SetLevel(logrus.WarnLevel)
	case log_service.ErrorLevel:
		ls.logger.SetLevel(logrus.ErrorLevel)
	}
}

func (ls *LogrusLogService) SetOutput(w io.Writer) {
	ls.logger.SetOutput(w)
}

func (ls *LogrusLogService) entry(event log_service.LogEvent) *logrus.Entry {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	component := event.Component
	if component == "" {
		component = ls.component
	}

	fields := logrus.Fields{"component": component}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	return ls.logger.WithFields(fields).WithTime(ts)
}

func (ls *LogrusLogService) Debug(event log_service.LogEvent) {
	ls.entry(event).Debug(event.Message)
}

func (ls *LogrusLogService) Info(event log_service.LogEvent) {
	ls.entry(event).Info(event.Message)
}

func (ls *LogrusLogService) Warn(event log_service.LogEvent) {
	ls.entry(event).Warn(event.Message)
}

func (ls *LogrusLogService) Error(event log_service.LogEvent) {
	ls.entry(event).Error(event.Message)
}

var _ log_service.LogService = (*LogrusLogService)(nil)
