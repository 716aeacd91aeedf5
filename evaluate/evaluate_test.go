package evaluate

import (
	"errors"
	"net/http"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/zerbitx/filegnock/mock"
	"github.com/zerbitx/filegnock/storage"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type echoExpressions string

func (x echoExpressions) Eval(string, Env) (string, error) {
	return string(x), nil
}

var _ = Describe("Evaluator", func() {
	var (
		evaluator *Evaluator
		request   *mock.Request
	)

	files := map[string]string{
		"data.json":        "{ \"key\": \"test-json\" }\n",
		"rest/data.json":   `{"resources": ["#import one.json;", "#import two.json;"]}`,
		"rest/one.json":    `{"id": 1, "name": "resource one"}`,
		"rest/two.json":    `{"id": 2, "name": "resource two"}`,
		"a.txt":            "a(#import shared/b.txt;)",
		"shared/b.txt":     "b(#import c.txt;)",
		"shared/c.txt":     "c\n",
		"loop.txt":         "again #import loop.txt;",
		"ping.txt":         "#import pong.txt;",
		"pong.txt":         "#import ping.txt;",
		"status.expr":      `"HTTP/1.1 " + string(400 + 28) + " Precondition Required"`,
		"broken.expr":      `1 +`,
		"name.txt":         "value",
		"eval/request.txt": "{{request.url}}",
		"deep/1.txt":       "1 #import 2.txt;",
		"deep/2.txt":       "2 #import 3.txt;",
		"deep/3.txt":       "3 #import 4.txt;",
		"deep/4.txt":       "4",
	}

	var store *storage.Store

	BeforeEach(func() {
		fs := memfs.New()
		for name, content := range files {
			Expect(util.WriteFile(fs, name, []byte(content), 0644)).To(Succeed())
		}

		store = storage.NewWithFS(fs, "examples")
		evaluator = New(store)
		request = mock.NewRequest(http.MethodGet, "/?eval", "", http.Header{"X-Test": {"yes"}}, mock.StringBody("payload"))
	})

	Context("Inline", func() {
		It("evaluates an expression", func() {
			Expect(evaluator.Inline("{{1+1}}", "GET.mock", request)).To(Equal("2"))
		})

		It("re-scans until every expression is replaced", func() {
			Expect(evaluator.Inline("{{1+1}} and {{2+2}}", "GET.mock", request)).To(Equal("2 and 4"))
		})

		It("spans lines", func() {
			content := "{{request.method == \"POST\"\n ? \"a post\"\n : \"Nope, not a post\"}}"
			Expect(evaluator.Inline(content, "GET.mock", request)).To(Equal("Nope, not a post"))
		})

		It("exposes the request", func() {
			Expect(evaluator.Inline("{{request.url}} {{request.headers[\"X-Test\"]}} {{request.body}}", "GET.mock", request)).
				To(Equal("/?eval yes payload"))
		})

		It("exposes the directory of the file", func() {
			Expect(evaluator.Inline("{{dirname}}", "rest/GET.mock", request)).To(Equal("examples/rest"))
		})

		It("serialises values that aren't strings", func() {
			Expect(evaluator.Inline(`{{readJSON("data.json")}}`, "GET.mock", request)).To(Equal(`{"key":"test-json"}`))
		})

		It("selects with json paths", func() {
			Expect(evaluator.Inline(`{{jsonPath(readJSON("data.json"), "$.key")}}`, "GET.mock", request)).To(Equal("test-json"))
		})

		It("fails naming the expression", func() {
			_, err := evaluator.Inline("before {{1 +}} after", "GET.mock", request)

			var evalErr *mock.EvaluationError
			Expect(errors.As(err, &evalErr)).To(BeTrue())
			Expect(evalErr.Expression).To(Equal("1 +"))
		})

		It("stops expressions producing themselves", func() {
			evaluator = New(storage.NewWithFS(memfs.New(), ""), WithExpressions(echoExpressions("{{again}}")), WithMaxSubstitutions(10))

			_, err := evaluator.Inline("{{again}}", "GET.mock", request)
			Expect(err).To(BeAssignableToTypeOf(&mock.EvaluationError{}))
			Expect(errors.Is(err, errTooMany)).To(BeTrue())
		})
	})

	Context("Imports", func() {
		It("inlines nested imports relative to each file", func() {
			content, err := evaluator.Imports("#import a.txt;", "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal("a(b(c))"))
			Expect(content).NotTo(ContainSubstring("#import"))
		})

		It("imports in the middle of data", func() {
			content, err := evaluator.Imports("before\n#import data.json;\nafter", "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal("before\n{ \"key\": \"test-json\" }\nafter"))
		})

		It("imports the same file many times", func() {
			content, err := evaluator.Imports("#import name.txt; #import name.txt;", "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal("value value"))
		})

		It("keeps the quotes around imports that aren't json", func() {
			content, err := evaluator.Imports(`{"key": "#import name.txt;"}`, "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal(`{"key": "value"}`))
		})

		It("evaluates snippets", func() {
			content, err := evaluator.Imports("#import status.expr;", "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal("HTTP/1.1 428 Precondition Required"))
		})

		It("fails on broken snippets", func() {
			_, err := evaluator.Imports("#import broken.expr;", "GET.mock", request)

			var evalErr *mock.EvaluationError
			Expect(errors.As(err, &evalErr)).To(BeTrue())
			Expect(evalErr.Expression).To(Equal("1 +"))
		})

		It("fails on missing files", func() {
			_, err := evaluator.Imports("#import missing.txt;", "GET.mock", request)

			var importErr *mock.ImportError
			Expect(errors.As(err, &importErr)).To(BeTrue())
			Expect(importErr.Target).To(Equal("missing.txt"))
			Expect(err).To(BeAssignableToTypeOf(&mock.EvaluationError{}))
		})

		It("fails on imports leaving the mocks directory", func() {
			_, err := evaluator.Imports("#import ../../etc/passwd;", "GET.mock", request)
			Expect(errors.Is(err, storage.ErrOutsideRoot)).To(BeTrue())
		})

		It("detects a file importing itself", func() {
			_, err := evaluator.Imports("#import loop.txt;", "GET.mock", request)
			Expect(errors.Is(err, errImportCycle)).To(BeTrue())
		})

		It("detects import cycles", func() {
			_, err := evaluator.Imports("#import ping.txt;", "GET.mock", request)
			Expect(errors.Is(err, errImportCycle)).To(BeTrue())
		})

		It("follows imports up to the maximum depth", func() {
			evaluator = New(store, WithMaxImportDepth(4))
			content, err := evaluator.Imports("#import deep/1.txt;", "GET.mock", request)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(content).To(Equal("1 2 3 4"))
		})

		It("fails on imports nested deeper than the maximum", func() {
			evaluator = New(store, WithMaxImportDepth(2))
			_, err := evaluator.Imports("#import deep/1.txt;", "GET.mock", request)

			var evalErr *mock.EvaluationError
			Expect(errors.As(err, &evalErr)).To(BeTrue())
			Expect(evalErr.Expression).To(Equal("#import 3.txt;"))
			Expect(errors.Is(err, errTooDeep)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("imports nested too deep"))
		})
	})

	Context("File", func() {
		It("loads a data file directly", func() {
			Expect(evaluator.File("data.json", nil)).To(Equal("{ \"key\": \"test-json\" }\n"))
		})

		It("evaluates the request inside data files", func() {
			Expect(evaluator.File("eval/request.txt", request)).To(Equal("/?eval"))
		})

		It("evaluates snippet files", func() {
			Expect(evaluator.File("status.expr", nil)).To(Equal("HTTP/1.1 428 Precondition Required"))
		})
	})

	Context("JSON", func() {
		It("decodes a json file", func() {
			Expect(evaluator.JSON("data.json", nil)).To(HaveKeyWithValue("key", "test-json"))
		})

		It("decodes json files with imports inside", func() {
			v, err := evaluator.JSON("rest/data.json", nil)
			Expect(err).ShouldNot(HaveOccurred())

			resources := v.(map[string]interface{})["resources"].([]interface{})
			Expect(resources).To(HaveLen(2))
			Expect(resources[0]).To(HaveKeyWithValue("name", "resource one"))
			Expect(resources[1]).To(HaveKeyWithValue("id", BeNumerically("==", 2)))
		})
	})
})
