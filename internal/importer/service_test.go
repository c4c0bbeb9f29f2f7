package importer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/finance-dashboard/internal"
	"github.com/frahmantamala/finance-dashboard/internal/auth"
	txDatamodel "github.com/frahmantamala/finance-dashboard/internal/core/datamodel/transaction"
	"github.com/frahmantamala/finance-dashboard/internal/importer"
	"github.com/frahmantamala/finance-dashboard/internal/transaction"
	txPostgres "github.com/frahmantamala/finance-dashboard/internal/transaction/postgres"
	"github.com/frahmantamala/finance-dashboard/internal/transport"
)

const bankFile = "date,amount,description,category\n" +
	"2024-03-01,-12.50,Supermarkt,Lebensmittel\n" +
	"2024-03-01,-12.50,Supermarkt,Lebensmittel\n" +
	"2024-03-05,-700.00,Miete,Wohnen\n" +
	"not a date,-1,kaputt,\n"

var _ = Describe("Import", func() {
	var (
		db       *gorm.DB
		txSvc    *transaction.Service
		service  *importer.Service
		ctx      context.Context
		slogger  *slog.Logger
		countFor func(userID int64) int
	)

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&txDatamodel.Transaction{})).To(Succeed())

		txSvc = transaction.NewService(txPostgres.NewRepository(db), transaction.NewAccountLocker(), nil, nil, slogger)
		service = importer.NewService(txSvc, nil, internal.ImportConfig{}, slogger)
		ctx = context.Background()

		countFor = func(userID int64) int {
			var n int64
			Expect(db.Model(&txDatamodel.Transaction{}).Where("user_id = ?", userID).Count(&n).Error).To(Succeed())
			return int(n)
		}
	})

	It("should import identical rows once each and nothing on re-import", func() {
		first, err := service.Import(ctx, 1, strings.NewReader(bankFile), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Imported).To(Equal(3))
		Expect(first.SkippedDuplicates).To(Equal(0))
		Expect(first.SkippedInvalid).To(Equal(1))
		Expect(first.Errors).To(HaveLen(1))

		second, err := service.Import(ctx, 1, strings.NewReader(bankFile), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Imported).To(Equal(0))
		Expect(second.SkippedDuplicates).To(Equal(3))
		Expect(second.SkippedInvalid).To(Equal(1))
		Expect(countFor(1)).To(Equal(3))
	})

	It("should import only the surplus of a key", func() {
		_, err := service.Import(ctx, 1, strings.NewReader("date,amount,description\n2024-03-01,-12.5,Supermarkt\n"), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())

		result, err := service.Import(ctx, 1, strings.NewReader(bankFile), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Imported).To(Equal(2))
		Expect(result.SkippedDuplicates).To(Equal(1))
		Expect(countFor(1)).To(Equal(3))
	})

	It("should count malformed amounts as invalid instead of booking them", func() {
		file := "date,amount,description\n" +
			"2024-03-01,1e5,Scientific\n" +
			"2024-03-02,12abc34,Mangled\n" +
			"2024-03-03,12.345,Sub-cent\n" +
			"2024-03-04,-9.99 EUR,Kiosk\n"

		result, err := service.Import(ctx, 1, strings.NewReader(file), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Imported).To(Equal(1))
		Expect(result.SkippedInvalid).To(Equal(3))
		Expect(countFor(1)).To(Equal(1))
	})

	It("should reconcile per account", func() {
		_, err := service.Import(ctx, 1, strings.NewReader(bankFile), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())

		result, err := service.Import(ctx, 2, strings.NewReader(bankFile), importer.Mapping{})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Imported).To(Equal(3))
	})

	It("should import a file at most once under concurrent resubmission", func() {
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := service.Import(ctx, 1, strings.NewReader(bankFile), importer.Mapping{})
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(countFor(1)).To(Equal(3))
	})

	Describe("Handler", func() {
		var handler *importer.Handler

		BeforeEach(func() {
			handler = importer.NewHandler(transport.NewBaseHandler(slogger), service, 1024)
		})

		upload := func(filename, content string, fields map[string]string) *httptest.ResponseRecorder {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			if filename != "" {
				part, err := mw.CreateFormFile(importer.FormFileField, filename)
				Expect(err).NotTo(HaveOccurred())
				part.Write([]byte(content))
			}
			for k, v := range fields {
				mw.WriteField(k, v)
			}
			Expect(mw.Close()).To(Succeed())

			req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			req = req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: 1, Username: "demo", IsActive: true}))

			w := httptest.NewRecorder()
			handler.ImportTransactions(w, req)
			return w
		}

		It("should return the import summary using the requested mapping", func() {
			w := upload("umsatz.CSV", "Tag;Betrag;Text\n01.03.2024;-12,50;Supermarkt\n", map[string]string{
				"date_field":        "Tag",
				"amount_field":      "Betrag",
				"description_field": "Text",
			})
			Expect(w.Code).To(Equal(http.StatusOK))

			var result importer.Result
			Expect(json.Unmarshal(w.Body.Bytes(), &result)).To(Succeed())
			Expect(result.Imported).To(Equal(1))
			Expect(result.Errors).To(BeEmpty())
		})

		It("should require csvfile", func() {
			w := upload("", "", map[string]string{"date_field": "date"})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("csvfile is required"))
		})

		It("should reject other file types", func() {
			w := upload("statement.xlsx", bankFile, nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring(".csv"))
		})

		It("should reject files over the limit", func() {
			w := upload("big.csv", "date,amount,description\n"+strings.Repeat("2024-03-01,-1,x\n", 100), nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(w.Body.String()).To(ContainSubstring("upload limit"))
			Expect(countFor(1)).To(Equal(0))
		})

		It("should report a header without the mapped columns", func() {
			w := upload("x.csv", "foo,bar\n1,2\n", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			var body internal.Response
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Detail).To(ContainSubstring("date, amount, description"))
		})
	})
})
