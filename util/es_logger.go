package util

import (
	"fmt"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

var (
	urlPattern         = regexp.MustCompile(`^https?://.+`)
	credentialsPattern = regexp.MustCompile(`//(?P<username>[^:/@]+):[^@]+@`)
)

// WrapKitLoggerDebug forwards the elastic client's info and trace logs at debug level.
type WrapKitLoggerDebug struct {
	*log.Logger
}

// Printf implements elastic.Logger.
func (logger WrapKitLoggerDebug) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)
	logger.Debugln("[ElasticSearch: Trace] => ", fmt.Sprintf(format, vars...))
}

// WrapKitLoggerError forwards the elastic client's error logs.
type WrapKitLoggerError struct {
	*log.Logger
}

// Printf implements elastic.Logger.
func (logger WrapKitLoggerError) Printf(format string, vars ...interface{}) {
	cleanSensitiveData(vars)

	formattedStr := fmt.Sprintf(format, vars...)
	if strings.Contains(strings.ToLower(formattedStr), "deprecation") {
		logger.Debugln("[ElasticSearch: Trace] => ", formattedStr)
		return
	}

	logger.Errorln("[ElasticSearch: Error] => ", formattedStr)
}

// cleanSensitiveData masks the password of every url found in vars.
func cleanSensitiveData(vars []interface{}) {
	for index, passedVar := range vars {
		stringedVar, ok := passedVar.(string)
		if !ok || !urlPattern.MatchString(stringedVar) {
			continue
		}
		vars[index] = MaskCredentials(stringedVar)
	}
}

// MaskCredentials replaces the password in an url with "***".
func MaskCredentials(s string) string {
	return credentialsPattern.ReplaceAllString(s, "//${username}:***@")
}
