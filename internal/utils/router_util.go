package utils

import (
	"reflect"
	"runtime"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func RoutesSummary(r *mux.Router, logger logrus.FieldLogger) {
	err := r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		fields := logrus.Fields{}
		if pathTemplate, err := route.GetPathTemplate(); err == nil {
			fields["route"] = pathTemplate
		}
		if pathRegexp, err := route.GetPathRegexp(); err == nil {
			fields["regexp"] = pathRegexp
		}
		if methods, err := route.GetMethods(); err == nil {
			fields["methods"] = strings.Join(methods, ",")
		}
		if v := reflect.ValueOf(route.GetHandler()); v.Kind() == reflect.Func {
			fields["handler"] = runtime.FuncForPC(v.Pointer()).Name()
		}
		logger.WithFields(fields).Info("route")
		return nil
	})

	if err != nil {
		logger.WithError(err).Warn("failed to walk routes")
	}
}
