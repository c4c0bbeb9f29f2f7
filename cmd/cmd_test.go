package cmd

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/finance-dashboard/internal"
)

func TestCmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Cmd Suite")
}

const minimalConfig = `
database:
  source: postgres://localhost/finance
security:
  jwt_secret: 0123456789abcdef0123456789abcdef
logging:
  level: info
`

var _ = Describe("loadConfig", func() {
	writeConfig := func(content string) string {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o600)).To(Succeed())
		return dir
	}

	It("should fill defaults for omitted settings", func() {
		cfg, err := loadConfig(writeConfig(minimalConfig))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(8000))
		Expect(cfg.Security.AccessTokenDuration).To(Equal(internal.DefaultAccessTokenDuration))
		Expect(cfg.Import.MaxUploadBytes).To(Equal(int64(internal.DefaultMaxUploadBytes)))
		Expect(cfg.Plausibility.LargeAmountThreshold).To(Equal(internal.DefaultLargeAmount))
		Expect(cfg.Logging.Format).To(Equal("text"))
	})

	It("should let ENV_ variables override file values", func() {
		GinkgoT().Setenv("ENV_LOGGING_LEVEL", "debug")
		cfg, err := loadConfig(writeConfig(minimalConfig))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Logging.Level).To(Equal("debug"))
	})

	It("should reject an invalid configuration", func() {
		_, err := loadConfig(writeConfig(`
database:
  source: postgres://localhost/finance
security:
  jwt_secret: short
`))
		Expect(err).To(MatchError(ContainSubstring("jwt_secret must be at least 32 characters")))
	})

	It("should fail without a config file", func() {
		_, err := loadConfig(GinkgoT().TempDir())
		Expect(err).To(HaveOccurred())
	})

	It("should read plain environment variables inside a container", func() {
		GinkgoT().Setenv("DOCKER_ENV", "true")
		GinkgoT().Setenv("DATABASE_URL", "postgres://db/finance")
		GinkgoT().Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
		GinkgoT().Setenv("PORT", "9090")

		cfg, err := loadConfig(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Database.Source).To(Equal("postgres://db/finance"))
		Expect(cfg.Logging.Format).To(Equal("json"))
	})

	It("should register the server, migrate and seed commands", func() {
		var names []string
		for _, c := range rootCmd.Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements("server", "migrate", "seed"))
	})
})
