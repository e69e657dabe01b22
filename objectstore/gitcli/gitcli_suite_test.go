package gitcli_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGitCLI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "gitcli Suite")
}
