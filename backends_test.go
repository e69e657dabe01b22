package changeset_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/grafana/changeset"
	"github.com/grafana/changeset/internal/testhelpers"
	"github.com/grafana/changeset/log"
	"github.com/grafana/changeset/objectstore"
	"github.com/grafana/changeset/objectstore/gitcli"
	"github.com/grafana/changeset/objectstore/gogit"
	"github.com/grafana/changeset/objectstore/kvstore"
	"github.com/grafana/changeset/protocol/hash"
)

func newSpecClient(store objectstore.Store, opts ...changeset.Option) changeset.Client {
	opts = append([]changeset.Option{
		changeset.WithAuthor(testAuthor),
		changeset.WithClock(tickingClock()),
		changeset.WithLogger(testhelpers.NewTestLogger()),
	}, opts...)
	c, err := changeset.NewClient(store, opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

var _ = Describe("Working checkout", func() {
	var (
		ctx    context.Context
		repo   *testhelpers.LocalRepo
		client changeset.Client
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

		Expect(repo.CreateFile(".gitignore", "*.log\n")).To(Succeed())
		Expect(repo.CreateFile("tracked.txt", "committed\n")).To(Succeed())
		_, err = repo.CommitAll("initial")
		Expect(err).NotTo(HaveOccurred())

		Expect(repo.CreateFile("tracked.txt", "edited\n")).To(Succeed())
		Expect(repo.CreateFile("drafts/new.txt", "draft\n")).To(Succeed())
		Expect(repo.CreateFile("build.log", "noise\n")).To(Succeed())

		store, err := gitcli.Open(ctx, repo.Path, gitcli.WithEnv(testhelpers.GitEnv...))
		Expect(err).NotTo(HaveOccurred())
		client = newSpecClient(store)
	})

	It("starts changesets from the checkout without touching it", func() {
		statusBefore, err := repo.Status()
		Expect(err).NotTo(HaveOccurred())

		Expect(client.Ensure(ctx, "work")).To(Succeed())

		content, err := client.ReadFile(ctx, "work", "tracked.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("edited\n"))

		content, err = client.ReadFile(ctx, "work", "drafts/new.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(Equal("draft\n"))

		_, err = client.ReadFile(ctx, "work", "build.log")
		Expect(err).To(MatchError(changeset.ErrPathNotFound))

		statusAfter, err := repo.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(statusAfter).To(Equal(statusBefore))
	})

	It("edits the changeset and leaves the files on disk alone", func() {
		_, err := client.WriteFile(ctx, "work", "tracked.txt", []byte("from changeset\n"))
		Expect(err).NotTo(HaveOccurred())
		_, err = client.Unlink(ctx, "work", "drafts/new.txt")
		Expect(err).NotTo(HaveOccurred())

		onDisk, err := os.ReadFile(filepath.Join(repo.Path, "tracked.txt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(onDisk)).To(Equal("edited\n"))
		Expect(filepath.Join(repo.Path, "drafts", "new.txt")).To(BeARegularFile())

		out, err := repo.Git("show", "work:tracked.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("from changeset"))
	})

	It("reports ignored paths and the repository root", func() {
		ignored, err := client.IsIgnored(ctx, "build.log")
		Expect(err).NotTo(HaveOccurred())
		Expect(ignored).To(BeTrue())

		ignored, err = client.IsIgnored(ctx, "drafts/new.txt")
		Expect(err).NotTo(HaveOccurred())
		Expect(ignored).To(BeFalse())

		root, err := client.RepoRoot(ctx, filepath.Join(repo.Path, "drafts"))
		Expect(err).NotTo(HaveOccurred())
		Expect(root).To(Equal("../"))

		_, err = client.RepoRoot(ctx, filepath.Join(repo.Path, "missing"))
		Expect(err).To(MatchError(changeset.ErrNotADirectory))
	})

	It("reads annotations written by git notes", func() {
		_, err := client.WriteFile(ctx, "work", "a.txt", []byte("a\n"))
		Expect(err).NotTo(HaveOccurred())

		_, err = repo.Git("notes", "--ref", "commits", "add", "-m", "from git", "work")
		Expect(err).NotTo(HaveOccurred())

		note, ok, err := client.ReadAnnotation(ctx, "work", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(note).To(Equal("from git"))
	})
})

var _ = Describe("Stores without a checkout", func() {
	It("report working copy queries as unsupported", func() {
		client := newSpecClient(kvstore.NewInMemory())

		_, err := client.IsIgnored(context.Background(), "a.log")
		Expect(err).To(MatchError(objectstore.ErrUnsupported))
		_, err = client.RepoRoot(context.Background(), ".")
		Expect(err).To(MatchError(objectstore.ErrUnsupported))
	})
})

var _ = Describe("Backends", func() {
	type backend struct {
		name string
		open func(ctx context.Context) objectstore.Store
	}

	backends := []backend{
		{"kvstore", func(context.Context) objectstore.Store { return kvstore.NewInMemory() }},
		{"go-git", func(context.Context) objectstore.Store {
			s, err := gogit.NewInMemory()
			Expect(err).NotTo(HaveOccurred())
			return s
		}},
		{"git", func(ctx context.Context) objectstore.Store {
			if !testhelpers.HasGit() {
				Skip("git is not installed")
			}
			repo, err := testhelpers.NewLocalRepo(GinkgoT().TempDir(), GinkgoWriter.Printf)
			Expect(err).NotTo(HaveOccurred())
			s, err := gitcli.Open(ctx, repo.Path, gitcli.WithEnv(testhelpers.GitEnv...))
			Expect(err).NotTo(HaveOccurred())
			return s
		}},
	}

	// edit runs the same sequence of operations and returns the final tree.
	edit := func(ctx context.Context, s objectstore.Store) hash.Hash {
		c := newSpecClient(s)

		_, err := c.WriteFile(ctx, "cs", "docs/readme.md", []byte("# readme\n"))
		Expect(err).NotTo(HaveOccurred())
		_, err = c.WriteFile(ctx, "cs", "bin/data", []byte{0, 1, 2, 3})
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Mkdir(ctx, "cs", "empty")
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Copy(ctx, "cs", "docs/readme.md", "docs/copy.md")
		Expect(err).NotTo(HaveOccurred())
		_, err = c.Rename(ctx, "cs", "bin/data", "bin/renamed")
		Expect(err).NotTo(HaveOccurred())
		id, err := c.WriteFile(ctx, "cs", "docs/readme.md", []byte("# readme\n\nmore\n"))
		Expect(err).NotTo(HaveOccurred())

		diffs, err := c.ReadCommit(ctx, id.String())
		Expect(err).NotTo(HaveOccurred())
		parent, err := c.ParentOf(ctx, id.String())
		Expect(err).NotTo(HaveOccurred())
		replayed, err := c.CommitFromDiffs(ctx, parent.String(), diffs)
		Expect(err).NotTo(HaveOccurred())

		want, err := s.ReadCommit(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		got, err := s.ReadCommit(ctx, replayed)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Tree.String()).To(Equal(want.Tree.String()))

		return want.Tree
	}

	It("produce identical trees for identical edits", func() {
		ctx := context.Background()

		trees := map[string]string{}
		for _, b := range backends {
			if b.name == "git" && !testhelpers.HasGit() {
				continue
			}
			trees[b.name] = edit(ctx, b.open(ctx)).String()
		}

		Expect(trees).NotTo(BeEmpty())
		for name, tree := range trees {
			Expect(tree).To(Equal(trees["kvstore"]), name)
		}
	})

	for _, b := range backends {
		It("runs the shadow protocol on "+b.name, func() {
			ctx := context.Background()
			s := b.open(ctx)
			c := newSpecClient(s, changeset.WithShadowWrites())

			_, err := c.WriteFile(ctx, "cs", "a.txt", []byte("a\n"))
			Expect(err).NotTo(HaveOccurred())

			state, err := c.State(ctx, "cs")
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(Equal(changeset.Dirty))

			pending, err := c.PendingCommit(ctx, "cs")
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Promote(ctx, "cs")).To(Succeed())

			primary, err := s.ReadRef(ctx, changeset.DefaultPrimaryNamespace+"cs")
			Expect(err).NotTo(HaveOccurred())
			Expect(primary.String()).To(Equal(pending.String()))

			Expect(c.RemoveChangeset(ctx, "cs")).To(Succeed())
			names, err := c.ListChangesets(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).NotTo(ContainElement("cs"))
		})
	}
})
