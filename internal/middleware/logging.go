package middleware

import (
	"net/http"
	"time"

	"github.com/2beens/orderbox/pkg"

	log "github.com/sirupsen/logrus"
)

func LogRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			resp := newStatusRecorder(w)
			next.ServeHTTP(resp, r)

			ip, err := pkg.ReadUserIP(r)
			if err != nil {
				ip = r.RemoteAddr
			}
			log.WithFields(log.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   resp.statusCode,
				"ip":       ip,
				"duration": time.Since(start).String(),
			}).Debugf(" ====> request [%s] path: [%s]", r.Method, r.URL.Path)
		})
	}
}
