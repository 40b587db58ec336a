package rigid

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRigidSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rigid Lifecycle Suite")
}
