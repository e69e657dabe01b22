package gitcli_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grafana/changeset/internal/testhelpers"
	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/objectstore/gitcli"
	"github.com/grafana/changeset/objectstore/storetest"
	"github.com/grafana/changeset/protocol/hash"
)

var _ = Describe("Work tree", func() {
	var (
		ctx   context.Context
		repo  *testhelpers.LocalRepo
		store *gitcli.Store
	)

	BeforeEach(func() {
		if !testhelpers.HasGit() {
			Skip("git is not installed")
		}

		logger := testhelpers.NewTestLogger()
		ctx = log.ToContext(context.Background(), logger)

		var err error
		repo, err = testhelpers.NewLocalRepo(GinkgoT().TempDir(), logger.Logf)
		Expect(err).NotTo(HaveOccurred())
		store, err = gitcli.Open(ctx, repo.Path, gitcli.WithEnv(testhelpers.GitEnv...))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Snapshot", func() {
		BeforeEach(func() {
			Expect(repo.CreateFile(".gitignore", "*.log\n")).To(Succeed())
			Expect(repo.CreateFile("tracked.txt", "v1\n")).To(Succeed())
			_, err := repo.CommitAll("initial")
			Expect(err).NotTo(HaveOccurred())

			Expect(repo.CreateFile("tracked.txt", "v2\n")).To(Succeed())
			Expect(repo.CreateFile("untracked/new.txt", "new\n")).To(Succeed())
			Expect(repo.CreateFile("debug.log", "noise\n")).To(Succeed())
			_, err = repo.Git("add", "tracked.txt")
			Expect(err).NotTo(HaveOccurred())
		})

		It("captures tracked and untracked changes without touching the index", func() {
			statusBefore, err := repo.Status()
			Expect(err).NotTo(HaveOccurred())

			snap, err := store.Snapshot(ctx, "[changeset-start]\n", storetest.Author, storetest.Committer)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(snap.Release)

			content, err := readFile(ctx, store, snap.Commit(), "tracked.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("v2\n"))

			content, err = readFile(ctx, store, snap.Commit(), "untracked/new.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(content).To(Equal("new\n"))

			_, err = objectstore.EntryAt(ctx, store, snap.Commit(), "debug.log")
			Expect(err).To(MatchError(objectstore.ErrPathNotFound))

			head, err := store.Resolve(ctx, "HEAD")
			Expect(err).NotTo(HaveOccurred())
			c, err := store.ReadCommit(ctx, snap.Commit())
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Parents).To(Equal([]hash.Hash{head}))

			statusAfter, err := repo.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(statusAfter).To(Equal(statusBefore))
		})

		It("removes the temporary index on release", func() {
			snap, err := store.Snapshot(ctx, "[changeset-start]\n", storetest.Author, storetest.Committer)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Release()).To(Succeed())
			Expect(snap.Release()).To(Succeed())
		})
	})

	It("snapshots an unborn branch without a parent", func() {
		Expect(repo.CreateFile("a.txt", "a\n")).To(Succeed())

		snap, err := store.Snapshot(ctx, "[changeset-start]\n", storetest.Author, storetest.Committer)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(snap.Release)

		c, err := store.ReadCommit(ctx, snap.Commit())
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Parents).To(BeEmpty())
	})

	It("reports ignored paths", func() {
		Expect(repo.CreateFile(".gitignore", "*.log\n")).To(Succeed())

		ignored, err := store.IsIgnored(ctx, "debug.log")
		Expect(err).NotTo(HaveOccurred())
		Expect(ignored).To(BeTrue())

		ignored, err = store.IsIgnored(ctx, "main.go")
		Expect(err).NotTo(HaveOccurred())
		Expect(ignored).To(BeFalse())
	})

	It("finds the repository root", func() {
		Expect(os.MkdirAll(filepath.Join(repo.Path, "a", "b"), 0o755)).To(Succeed())

		root, err := store.Root(ctx, filepath.Join(repo.Path, "a", "b"))
		Expect(err).NotTo(HaveOccurred())
		Expect(root).To(Equal("../../"))

		root, err = store.Root(ctx, repo.Path)
		Expect(err).NotTo(HaveOccurred())
		Expect(root).To(BeEmpty())

		_, err = store.Root(ctx, filepath.Join(repo.Path, "missing"))
		Expect(err).To(MatchError(objectstore.ErrNotADirectory))
	})
})

func readFile(ctx context.Context, s objectstore.Store, commit hash.Hash, p string) (string, error) {
	entry, err := objectstore.EntryAt(ctx, s, commit, p)
	if err != nil {
		return "", err
	}
	content, err := s.ReadBlob(ctx, entry.Hash)
	return string(content), err
}
