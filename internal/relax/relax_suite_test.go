package relax_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRelax(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Relax Suite")
}
