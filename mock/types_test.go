package mock

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Request", func() {
	It("upper-cases the method", func() {
		Expect(NewRequest("get", "/", "", nil, Body{}).Method).To(Equal("GET"))
	})

	It("splits a query left on the path", func() {
		req := NewRequest("GET", "/test/42?paramA=43", "", nil, Body{})
		Expect(req.Path).To(Equal("/test/42"))
		Expect(req.Query).To(Equal("paramA=43"))
		Expect(req.URL()).To(Equal("/test/42?paramA=43"))
	})

	It("has an URL without a trailing ? when there is no query", func() {
		Expect(NewRequest("GET", "/a", "", http.Header{}, Body{}).URL()).To(Equal("/a"))
	})
})

var _ = Describe("Body", func() {
	It("uses the raw string as token", func() {
		Expect(StringBody("body").Token()).To(Equal("body"))
	})

	It("serializes structured bodies as key=value pairs", func() {
		body := FieldsBody(map[string]interface{}{"test": "value", "n": 1})
		Expect(body.IsStructured()).To(BeTrue())
		Expect(body.Token()).To(Equal("n=1&test=value"))
	})

	It("keeps field order when built from fields", func() {
		body := Body{Fields: []Field{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}}}
		Expect(body.Token()).To(Equal("z=1&a=2"))
		Expect(body.Value()).To(Equal(map[string]interface{}{"z": "1", "a": "2"}))
	})
})

var _ = Describe("Response", func() {
	It("accumulates repeated headers in order", func() {
		res := &Response{}
		res.Add("Set-Cookie", "A=A")
		res.Add("Content-Type", "text/plain")
		res.Add("Set-Cookie", "B=B")

		Expect(res.Values("Set-Cookie")).To(Equal([]string{"A=A", "B=B"}))
		Expect(res.Header("Content-Type")).To(Equal("text/plain"))
		Expect(res.Headers[0].Name).To(Equal("Set-Cookie"))
	})
})

var _ = Describe("Errors", func() {
	It("names the failing expression", func() {
		err := &EvaluationError{Expression: "1 +", Err: errors.New("boom")}
		Expect(err.Error()).To(Equal("unable to evaluate 1 +: boom"))
	})

	It("unwraps import failures", func() {
		cause := errors.New("missing")
		var err error = &EvaluationError{Expression: "#import a;", Err: &ImportError{Target: "a", Err: cause}}

		var importErr *ImportError
		Expect(errors.As(err, &importErr)).To(BeTrue())
		Expect(errors.Is(err, cause)).To(BeTrue())
	})
})
