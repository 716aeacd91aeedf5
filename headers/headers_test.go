package headers

import (
	"net/http"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Headers", func() {
	Context("Watched", func() {
		It("defaults to nothing", func() {
			Expect(Watched("")).To(BeEmpty())
		})

		It("keeps the configured order and case", func() {
			Expect(Watched("a,b,c-A")).To(Equal([]string{"a", "b", "c-A"}))
		})

		It("drops empty names and repeats", func() {
			Expect(Watched("a,,b, a ,b")).To(Equal([]string{"a", "b"}))
		})
	})

	table.DescribeTable("Canonical",
		func(in, out string) {
			Expect(Canonical(in)).To(Equal(out))
		},
		table.Entry("lower case", "header-a", "Header-A"),
		table.Entry("camel case", "headerA", "Headera"),
		table.Entry("upper case", "X-H1", "X-H1"),
		table.Entry("acronyms", "ETag", "Etag"),
		table.Entry("leading acronym", "WWW-Authenticate", "Www-Authenticate"),
		table.Entry("trailing acronym", "Content-MD5", "Content-Md5"),
	)

	Context("Match", func() {
		request := http.Header{
			"headerA":  {"valueA"},
			"header-B": {"valueB"},
			"Empty":    {""},
		}

		It("finds nothing without watched headers", func() {
			Expect(Match(request, nil)).To(BeEmpty())
		})

		It("matches case-insensitively and normalises the name", func() {
			Expect(Match(request, Watched("headerA,headerB"))).To(Equal([]Pair{{Name: "Headera", Value: "valueA"}}))
		})

		It("follows the watched order", func() {
			pairs := Match(request, Watched("HEADER-B,headera"))
			Expect(pairs).To(HaveLen(2))
			Expect(pairs[0].Token()).To(Equal("_Header-B=valueB"))
			Expect(pairs[1].Token()).To(Equal("_Headera=valueA"))
		})

		It("ignores empty values", func() {
			Expect(Match(request, Watched("Empty"))).To(BeEmpty())
		})
	})
})
