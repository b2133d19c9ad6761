package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/torosent/webreplay/internal/runner"
)

// errorClass is one failure bucket. Classes are tried in order, so the more
// specific transport causes come before the generic network error.
type errorClass struct {
	label string
	match func(error) bool
}

var errorClasses = []errorClass{
	{"Canceled", isAny(context.Canceled)},
	{"Timeout", isTimeout},
	{"Connection refused", isAny(syscall.ECONNREFUSED)},
	{"Connection reset", isAny(syscall.ECONNRESET, syscall.EPIPE)},
	{"Connection closed", isAny(io.EOF, io.ErrUnexpectedEOF)},
	{"DNS lookup failed", asType[*net.DNSError]},
	{"TLS certificate error", isCertificateError},
	{"Network error", asType[*net.OpError]},
}

// ClassifyError buckets a request failure by its most telling cause. Causes
// outside the known classes are labelled with their Go type.
func ClassifyError(err error) string {
	if err == nil {
		return "Unknown error"
	}
	for _, c := range errorClasses {
		if c.match(err) {
			return c.label
		}
	}
	return "Other (" + typeLabel(innermostCause(err)) + ")"
}

func isAny(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

func asType[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isCertificateError(err error) bool {
	return asType[*tls.CertificateVerificationError](err) ||
		asType[x509.UnknownAuthorityError](err) ||
		asType[x509.HostnameError](err) ||
		asType[x509.CertificateInvalidError](err)
}

// innermostCause strips the replay and net/http wrappers that every failure
// carries, leaving the error that names what went wrong.
func innermostCause(err error) error {
	var rf *runner.RequestFailure
	if errors.As(err, &rf) && rf.Err != nil {
		err = rf.Err
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		err = ue.Err
	}
	return err
}

// typeLabel renders a type as pkg.Name without pointer or import path.
func typeLabel(err error) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
