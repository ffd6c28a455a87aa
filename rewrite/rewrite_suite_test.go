package rewrite_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mdvalidate/mdbook-validator/rewrite"
)

func TestRewriteSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "rewrite suite")
}

var _ = Describe("Chapter", func() {
	It("preserves everything outside a validator fence, byte for byte", func() {
		source := "# Title\n\nSome *emphasis* and a [link](http://example.com).\n\n" +
			"```sql validator=sqlite\nSELECT 1;\n```\n\nTrailing text.\n"

		out := rewrite.Chapter(source)

		Expect(out).To(ContainSubstring("Some *emphasis* and a [link](http://example.com)."))
		Expect(out).To(ContainSubstring("Trailing text."))
	})

	It("removes skip+hidden blocks from output even though they never reach the dispatcher", func() {
		source := "```sql validator=sqlite skip hidden\nSELECT 1;\n```\n"
		out := rewrite.Chapter(source)
		Expect(out).NotTo(ContainSubstring("SELECT 1;"))
	})

	It("keeps adjacent hidden blocks from leaving stray blank lines", func() {
		source := "a\n```x validator=v hidden\none\n```\n```x validator=v hidden\ntwo\n```\nb\n"
		out := rewrite.Chapter(source)
		Expect(out).To(Equal("a\nb"))
	})
})
